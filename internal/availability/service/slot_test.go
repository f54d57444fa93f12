package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/internal/availability/grid"
	"fieldslots/internal/availability/reconciler"
	"fieldslots/internal/availability/selection"
	apperrors "fieldslots/pkg/errors"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
	"fieldslots/pkg/model"
)

type fakeOwner struct {
	g         *grid.Grid
	scope     grid.Scope
	hasScope  bool
	refreshes int
	closed    int
	listeners []func(reconciler.Change)
}

func (f *fakeOwner) Grid() *grid.Grid { return f.g }

func (f *fakeOwner) Scope() (grid.Scope, bool) { return f.scope, f.hasScope }

func (f *fakeOwner) SetScope(ctx context.Context, branchID int64, date string) error {
	next := grid.Scope{BranchID: branchID, Date: date}
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %v", availabilityerrors.ErrInvalidScope, err)
	}
	f.scope, f.hasScope = next, true
	f.g = grid.New(next, 1, grid.SourceSnapshot, grid.CandidateHours(8, 24), nil)
	for _, fn := range f.listeners {
		fn(reconciler.Change{Grid: f.g, Reason: reconciler.ReasonScopeChanged})
	}
	return nil
}

func (f *fakeOwner) RefreshNow(ctx context.Context) error {
	if !f.hasScope {
		return availabilityerrors.ErrNoScope
	}
	f.refreshes++
	return nil
}

func (f *fakeOwner) OnChange(fn func(reconciler.Change)) func() {
	f.listeners = append(f.listeners, fn)
	return func() { f.listeners = nil }
}

func (f *fakeOwner) Close() error {
	f.closed++
	return nil
}

type mockGateway struct {
	submitFunc func(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error)
	requests   []*model.BookingRequest
}

func (m *mockGateway) Submit(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error) {
	m.requests = append(m.requests, req)
	if m.submitFunc != nil {
		return m.submitFunc(ctx, req)
	}
	return &model.Reservation{ID: "r-1", FieldID: req.FieldID, BookingDate: req.BookingDate, StartTime: req.StartTime, EndTime: req.EndTime}, nil
}

type mockHistory struct {
	saved []*model.Reservation
	err   error
}

func (m *mockHistory) Save(ctx context.Context, r *model.Reservation) error {
	m.saved = append(m.saved, r)
	return m.err
}

func available(id int64) model.Field {
	return model.Field{ID: id, Status: model.FieldStatusAvailable}
}

func newService(t *testing.T) (SlotService, *fakeOwner, *mockGateway, *mockHistory, *metrics.Metrics) {
	t.Helper()
	owner := &fakeOwner{g: grid.Empty(grid.Scope{}, 0, grid.CandidateHours(8, 24))}
	gw := &mockGateway{}
	history := &mockHistory{}
	m := metrics.New("test")
	svc := NewSlotService(owner, gw, history, m, logger.Discard())
	return svc, owner, gw, history, m
}

func TestClick_NoScope(t *testing.T) {
	svc, _, _, _, _ := newService(t)

	_, err := svc.Click(context.Background(), available(1), 10)
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeConflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestClick_CompletedSelectionIsSubmitted(t *testing.T) {
	svc, owner, gw, history, m := newService(t)
	ctx := context.Background()
	_ = svc.SetScope(ctx, 4, "2024-06-01")

	first, err := svc.Click(ctx, available(3), 10)
	if err != nil || first.Outcome != selection.OutcomeStarted {
		t.Fatalf("unexpected first click: %+v, %v", first, err)
	}

	res, err := svc.Click(ctx, available(3), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != selection.OutcomeCompleted || res.Reservation == nil {
		t.Fatalf("expected completed with reservation, got %+v", res)
	}

	want := model.BookingRequest{FieldID: 3, BookingDate: "2024-06-01", StartTime: "10:00", EndTime: "12:00"}
	if len(gw.requests) != 1 || *gw.requests[0] != want {
		t.Errorf("expected request %+v, got %v", want, gw.requests)
	}
	if res.Reservation.BranchID != 4 {
		t.Errorf("expected branch stamped on reservation, got %d", res.Reservation.BranchID)
	}
	if len(history.saved) != 1 {
		t.Errorf("expected history record, got %d", len(history.saved))
	}
	if owner.refreshes != 1 {
		t.Errorf("expected refresh after booking, got %d", owner.refreshes)
	}
	if got := testutil.ToFloat64(m.SelectionsCompleted); got != 1 {
		t.Errorf("expected 1 completed selection, got %v", got)
	}
}

func TestClick_RejectionSurfacesAndSkipsHistory(t *testing.T) {
	svc, owner, gw, history, _ := newService(t)
	ctx := context.Background()
	_ = svc.SetScope(ctx, 1, "2024-06-01")
	gw.submitFunc = func(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error) {
		return nil, apperrors.Rejected("Slot taken", 409)
	}

	_, _ = svc.Click(ctx, available(3), 10)
	res, err := svc.Click(ctx, available(3), 11)

	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeRejected || appErr.Message != "Slot taken" {
		t.Errorf("expected verbatim rejection, got %v", err)
	}
	if res == nil || res.Outcome != selection.OutcomeCompleted {
		t.Errorf("selection result should accompany the error, got %+v", res)
	}
	if len(history.saved) != 0 || owner.refreshes != 0 {
		t.Errorf("rejected booking must not be recorded or refreshed")
	}
}

func TestClick_HistoryFailureIsNotFatal(t *testing.T) {
	svc, _, _, history, _ := newService(t)
	ctx := context.Background()
	_ = svc.SetScope(ctx, 1, "2024-06-01")
	history.err = errors.New("mongo down")

	_, _ = svc.Click(ctx, available(3), 10)
	res, err := svc.Click(ctx, available(3), 11)
	if err != nil || res.Reservation == nil {
		t.Errorf("expected reservation despite history failure, got %+v, %v", res, err)
	}
}

func TestSetScope_ResetsSelection(t *testing.T) {
	svc, _, _, _, _ := newService(t)
	ctx := context.Background()
	_ = svc.SetScope(ctx, 1, "2024-06-01")

	_, _ = svc.Click(ctx, available(3), 10)
	if svc.Selection().Mode != selection.AwaitingEnd {
		t.Fatal("expected pending selection")
	}

	_ = svc.SetScope(ctx, 1, "2024-06-02")
	if s := svc.Selection(); s.Mode != selection.AwaitingStart || s.FieldID != nil {
		t.Errorf("selection must be cleared on scope change, got %+v", s)
	}
}

func TestSetScope_Invalid(t *testing.T) {
	svc, _, _, _, _ := newService(t)

	err := svc.SetScope(context.Background(), 1, "01/06/2024")
	if code := apperrors.AsAppError(err).Code; code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	svc, owner, _, _, _ := newService(t)
	ctx := context.Background()

	if code := apperrors.AsAppError(svc.Refresh(ctx)).Code; code != apperrors.CodeConflict {
		t.Errorf("expected conflict without scope, got %s", code)
	}

	_ = svc.SetScope(ctx, 1, "2024-06-01")
	if err := svc.Refresh(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owner.refreshes != 1 {
		t.Errorf("expected one refresh, got %d", owner.refreshes)
	}
}

func TestClose_Once(t *testing.T) {
	svc, owner, _, _, _ := newService(t)

	_ = svc.Close()
	_ = svc.Close()

	if owner.closed != 1 {
		t.Errorf("expected owner closed once, got %d", owner.closed)
	}
	if owner.listeners != nil {
		t.Error("expected grid listener disposed")
	}
}
