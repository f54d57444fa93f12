package selection

import (
	"testing"

	"fieldslots/internal/availability/grid"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/model"
)

type stubSource struct {
	g *grid.Grid
}

func (s *stubSource) Grid() *grid.Grid { return s.g }

var testScope = grid.Scope{BranchID: 1, Date: "2024-06-01"}

func gridWith(booked map[int64][]int) *grid.Grid {
	return grid.New(testScope, 1, grid.SourceSnapshot, grid.CandidateHours(8, 24), booked)
}

func field(id int64) model.Field {
	return model.Field{ID: id, Status: model.FieldStatusAvailable}
}

func newMachine(g *grid.Grid) (*Machine, *stubSource) {
	src := &stubSource{g: g}
	return NewMachine(src, logger.Discard()), src
}

func TestScenarioC(t *testing.T) {
	m, _ := newMachine(gridWith(map[int64][]int{3: {11}}))

	var emitted []Completed
	m.OnComplete(func(c Completed) { emitted = append(emitted, c) })

	if res := m.Click(field(3), 10); res.Outcome != OutcomeStarted {
		t.Fatalf("expected started, got %s", res.Outcome)
	}
	state := m.State()
	if state.Mode != AwaitingEnd || *state.StartHour != 10 || *state.FieldID != 3 {
		t.Fatalf("unexpected state %+v", state)
	}

	if res := m.Click(field(3), 9); res.Outcome != OutcomeIgnored {
		t.Errorf("click before start: expected ignored, got %s", res.Outcome)
	}
	if res := m.Click(field(3), 13); res.Outcome != OutcomeIgnored {
		t.Errorf("click across booked 11: expected ignored, got %s", res.Outcome)
	}
	if len(emitted) != 0 {
		t.Fatalf("nothing should be emitted yet, got %v", emitted)
	}
	if m.State().Mode != AwaitingEnd {
		t.Fatal("ignored clicks must not change mode")
	}
}

func TestScenarioC_FreeRangeCompletes(t *testing.T) {
	m, _ := newMachine(gridWith(nil))

	var emitted []Completed
	m.OnComplete(func(c Completed) { emitted = append(emitted, c) })

	m.Click(field(3), 10)
	m.Click(field(3), 9)
	res := m.Click(field(3), 12)

	if res.Outcome != OutcomeCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Outcome, res.Reason)
	}
	want := Completed{FieldID: 3, StartHour: 10, EndHour: 12}
	if res.Selection == nil || *res.Selection != want {
		t.Errorf("expected selection %+v, got %+v", want, res.Selection)
	}
	if len(emitted) != 1 || emitted[0] != want {
		t.Errorf("expected one emission of %+v, got %v", want, emitted)
	}
	if res.State.Mode != AwaitingStart || res.State.EndHour == nil || *res.State.EndHour != 12 {
		t.Errorf("unexpected state after completion %+v", res.State)
	}
}

func TestClick_StartValidation(t *testing.T) {
	g := gridWith(map[int64][]int{1: {9}})

	tests := []struct {
		name   string
		field  model.Field
		hour   int
		reason string
	}{
		{"booked hour", field(1), 9, reasonHourBooked},
		{"before opening", field(1), 7, reasonOutsideHours},
		{"maintenance", model.Field{ID: 1, Status: model.FieldStatusMaintenance}, 10, reasonNotBookable},
		{"closed", model.Field{ID: 1, Status: model.FieldStatusClosed}, 10, reasonNotBookable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newMachine(g)
			res := m.Click(tt.field, tt.hour)
			if res.Outcome != OutcomeIgnored || res.Reason != tt.reason {
				t.Errorf("expected ignored with %q, got %s %q", tt.reason, res.Outcome, res.Reason)
			}
			if s := m.State(); s.Mode != AwaitingStart || s.FieldID != nil {
				t.Errorf("state changed: %+v", s)
			}
		})
	}
}

func TestClick_NoScope(t *testing.T) {
	m, _ := newMachine(grid.Empty(grid.Scope{}, 0, grid.CandidateHours(8, 24)))

	if res := m.Click(field(1), 10); res.Outcome != OutcomeIgnored || res.Reason != reasonNoScope {
		t.Errorf("expected ignored without scope, got %+v", res)
	}
}

func TestClick_SameStartCancels(t *testing.T) {
	m, _ := newMachine(gridWith(nil))

	m.Click(field(2), 14)
	res := m.Click(field(2), 14)

	if res.Outcome != OutcomeCancelled {
		t.Fatalf("expected cancelled, got %s", res.Outcome)
	}
	if res.State.Mode != AwaitingStart || res.State.FieldID != nil || res.State.StartHour != nil {
		t.Errorf("selection not cleared: %+v", res.State)
	}
}

func TestClick_OtherFieldRestarts(t *testing.T) {
	m, _ := newMachine(gridWith(map[int64][]int{5: {16}}))

	m.Click(field(2), 14)

	if res := m.Click(field(5), 16); res.Outcome != OutcomeIgnored {
		t.Errorf("booked hour on other field: expected ignored, got %s", res.Outcome)
	}
	if s := m.State(); *s.FieldID != 2 {
		t.Errorf("ignored restart must keep the prior selection, got %+v", s)
	}

	res := m.Click(field(5), 17)
	if res.Outcome != OutcomeRestarted {
		t.Fatalf("expected restarted, got %s", res.Outcome)
	}
	if *res.State.FieldID != 5 || *res.State.StartHour != 17 || res.State.Mode != AwaitingEnd {
		t.Errorf("unexpected state %+v", res.State)
	}
}

func TestClick_RevalidatesAgainstCurrentGrid(t *testing.T) {
	m, src := newMachine(gridWith(nil))

	m.Click(field(4), 10)

	src.g = gridWith(map[int64][]int{4: {10}})
	if res := m.Click(field(4), 12); res.Reason != reasonStartBooked {
		t.Errorf("expected start re-check to fail, got %+v", res)
	}

	src.g = gridWith(map[int64][]int{4: {11}})
	if res := m.Click(field(4), 12); res.Reason != reasonRangeBooked {
		t.Errorf("expected range re-check to fail, got %+v", res)
	}

	src.g = gridWith(map[int64][]int{4: {12}})
	if res := m.Click(field(4), 12); res.Outcome != OutcomeCompleted {
		t.Errorf("booked end hour is exclusive and must not block, got %+v", res)
	}
}

func TestClick_AdjacentEndCompletes(t *testing.T) {
	m, _ := newMachine(gridWith(nil))

	m.Click(field(1), 22)
	res := m.Click(field(1), 23)

	if res.Outcome != OutcomeCompleted || res.Selection.EndHour != 23 {
		t.Errorf("expected one-hour selection, got %+v", res)
	}
}

func TestClick_AfterCompletionStartsFresh(t *testing.T) {
	m, _ := newMachine(gridWith(nil))

	m.Click(field(1), 10)
	m.Click(field(1), 12)
	res := m.Click(field(1), 15)

	if res.Outcome != OutcomeStarted {
		t.Fatalf("expected started, got %s", res.Outcome)
	}
	if res.State.EndHour != nil || *res.State.StartHour != 15 {
		t.Errorf("previous range not cleared: %+v", res.State)
	}
}

func TestReset(t *testing.T) {
	m, _ := newMachine(gridWith(nil))

	m.Click(field(1), 10)
	m.Reset()

	if s := m.State(); s.Mode != AwaitingStart || s.FieldID != nil {
		t.Errorf("expected cleared state, got %+v", s)
	}
	if res := m.Click(field(1), 12); res.Outcome != OutcomeStarted {
		t.Errorf("expected fresh start after reset, got %s", res.Outcome)
	}
}

func TestOnComplete_DisposeAndPanic(t *testing.T) {
	m, _ := newMachine(gridWith(nil))

	calls := 0
	dispose := m.OnComplete(func(Completed) { calls++ })
	m.OnComplete(func(Completed) { panic("boom") })
	after := 0
	m.OnComplete(func(Completed) { after++ })

	m.Click(field(1), 10)
	m.Click(field(1), 11)
	dispose()
	dispose()
	m.Click(field(1), 12)
	m.Click(field(1), 13)

	if calls != 1 {
		t.Errorf("disposed listener called %d times", calls)
	}
	if after != 2 {
		t.Errorf("listener after a panicking one called %d times, want 2", after)
	}
}
