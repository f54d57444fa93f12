package selection

import (
	"sort"
	"sync"

	"fieldslots/internal/availability/grid"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/model"
)

type Mode string

const (
	AwaitingStart Mode = "awaiting_start"
	AwaitingEnd   Mode = "awaiting_end"
)

type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeStarted   Outcome = "started"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeRestarted Outcome = "restarted"
	OutcomeCompleted Outcome = "completed"
)

const (
	reasonNoScope      = "no scope selected"
	reasonOutsideHours = "hour outside opening hours"
	reasonNotBookable  = "field is not available for booking"
	reasonHourBooked   = "hour is already booked"
	reasonStartBooked  = "start hour was booked in the meantime"
	reasonBeforeStart  = "end hour must be after start hour"
	reasonRangeBooked  = "range crosses a booked hour"
)

// State is the externally visible selection. EndHour is set only after a
// completed selection and is cleared by the next start click.
type State struct {
	Mode      Mode   `json:"mode"`
	FieldID   *int64 `json:"fieldId,omitempty"`
	StartHour *int   `json:"startHour,omitempty"`
	EndHour   *int   `json:"endHour,omitempty"`
}

// Completed is an emitted range; EndHour is exclusive.
type Completed struct {
	FieldID   int64 `json:"fieldId"`
	StartHour int   `json:"startHour"`
	EndHour   int   `json:"endHour"`
}

type Result struct {
	Outcome   Outcome    `json:"outcome"`
	State     State      `json:"state"`
	Selection *Completed `json:"selection,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type GridSource interface {
	Grid() *grid.Grid
}

// Machine is the two-click range picker. Every click is checked against the
// grid current at the time of the click.
type Machine struct {
	source GridSource
	log    *logger.Logger

	mu       sync.Mutex
	mode     Mode
	fieldID  int64
	start    int
	end      int
	hasField bool
	hasEnd   bool

	listeners map[uint64]func(Completed)
	nextID    uint64
}

func NewMachine(source GridSource, log *logger.Logger) *Machine {
	return &Machine{
		source:    source,
		log:       log,
		mode:      AwaitingStart,
		listeners: make(map[uint64]func(Completed)),
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Reset clears the selection regardless of its mode.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearLocked()
}

func (m *Machine) Click(field model.Field, hour int) Result {
	g := m.source.Grid()

	m.mu.Lock()
	res := m.clickLocked(g, field, hour)
	res.State = m.stateLocked()
	var fns []func(Completed)
	if res.Selection != nil {
		fns = m.listenersLocked()
	}
	m.mu.Unlock()

	if res.Outcome == OutcomeIgnored {
		m.log.Debug("Ignoring slot click",
			"field_id", field.ID,
			"hour", hour,
			"reason", res.Reason,
		)
	}
	for _, fn := range fns {
		m.emit(fn, *res.Selection)
	}
	return res
}

func (m *Machine) clickLocked(g *grid.Grid, field model.Field, hour int) Result {
	if g.Scope().IsZero() {
		return ignored(reasonNoScope)
	}

	if m.mode == AwaitingStart {
		return m.startLocked(g, field, hour, OutcomeStarted)
	}

	if field.ID != m.fieldID {
		return m.startLocked(g, field, hour, OutcomeRestarted)
	}

	switch {
	case hour == m.start:
		m.clearLocked()
		return Result{Outcome: OutcomeCancelled}
	case hour < m.start:
		return ignored(reasonBeforeStart)
	case !g.InHours(hour):
		return ignored(reasonOutsideHours)
	case !field.Bookable():
		return ignored(reasonNotBookable)
	case g.IsBooked(field.ID, m.start):
		return ignored(reasonStartBooked)
	}
	for h := m.start + 1; h < hour; h++ {
		if g.IsBooked(field.ID, h) {
			return ignored(reasonRangeBooked)
		}
	}

	m.mode = AwaitingStart
	m.end = hour
	m.hasEnd = true
	return Result{
		Outcome:   OutcomeCompleted,
		Selection: &Completed{FieldID: m.fieldID, StartHour: m.start, EndHour: hour},
	}
}

func (m *Machine) startLocked(g *grid.Grid, field model.Field, hour int, outcome Outcome) Result {
	switch {
	case !g.InHours(hour):
		return ignored(reasonOutsideHours)
	case !field.Bookable():
		return ignored(reasonNotBookable)
	case g.IsBooked(field.ID, hour):
		return ignored(reasonHourBooked)
	}

	m.mode = AwaitingEnd
	m.fieldID = field.ID
	m.start = hour
	m.hasField = true
	m.end = 0
	m.hasEnd = false
	return Result{Outcome: outcome}
}

func (m *Machine) clearLocked() {
	m.mode = AwaitingStart
	m.fieldID = 0
	m.start = 0
	m.end = 0
	m.hasField = false
	m.hasEnd = false
}

func (m *Machine) stateLocked() State {
	s := State{Mode: m.mode}
	if !m.hasField {
		return s
	}
	fieldID, start := m.fieldID, m.start
	s.FieldID = &fieldID
	s.StartHour = &start
	if m.hasEnd {
		end := m.end
		s.EndHour = &end
	}
	return s
}

// OnComplete registers fn for completed selections and returns its disposer.
func (m *Machine) OnComplete(fn func(Completed)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Machine) listenersLocked() []func(Completed) {
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Completed), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	return fns
}

func (m *Machine) emit(fn func(Completed), c Completed) {
	defer func() {
		if p := recover(); p != nil {
			m.log.Error("Selection listener panicked", "panic", p)
		}
	}()
	fn(c)
}

func ignored(reason string) Result {
	return Result{Outcome: OutcomeIgnored, Reason: reason}
}
