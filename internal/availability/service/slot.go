package service

import (
	"context"
	"errors"
	"sync"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/internal/availability/gateway"
	"fieldslots/internal/availability/grid"
	"fieldslots/internal/availability/reconciler"
	"fieldslots/internal/availability/selection"
	apperrors "fieldslots/pkg/errors"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
	"fieldslots/pkg/model"
)

// GridOwner is the part of the reconciler the service drives.
type GridOwner interface {
	Grid() *grid.Grid
	Scope() (grid.Scope, bool)
	SetScope(ctx context.Context, branchID int64, date string) error
	RefreshNow(ctx context.Context) error
	OnChange(fn func(reconciler.Change)) func()
	Close() error
}

type HistoryStore interface {
	Save(ctx context.Context, r *model.Reservation) error
}

type ClickResult struct {
	selection.Result
	Reservation *model.Reservation `json:"reservation,omitempty"`
}

type SlotService interface {
	SetScope(ctx context.Context, branchID int64, date string) error
	Scope() (grid.Scope, bool)
	Grid() *grid.Grid
	Refresh(ctx context.Context) error
	Click(ctx context.Context, field model.Field, hour int) (*ClickResult, error)
	Selection() selection.State
	ResetSelection()
	Close() error
}

type slotService struct {
	owner   GridOwner
	machine *selection.Machine
	gateway gateway.Gateway
	history HistoryStore
	metrics *metrics.Metrics
	log     *logger.Logger

	disposers []func()
	closeOnce sync.Once
}

// NewSlotService wires selection to the grid owner. history may be nil.
func NewSlotService(
	owner GridOwner,
	gw gateway.Gateway,
	history HistoryStore,
	m *metrics.Metrics,
	log *logger.Logger,
) SlotService {
	s := &slotService{
		owner:   owner,
		machine: selection.NewMachine(owner, log),
		gateway: gw,
		history: history,
		metrics: m,
		log:     log,
	}
	s.disposers = append(s.disposers,
		owner.OnChange(s.onGridChange),
		s.machine.OnComplete(func(selection.Completed) { m.SelectionsCompleted.Inc() }),
	)
	return s
}

func (s *slotService) onGridChange(c reconciler.Change) {
	if c.Reason == reconciler.ReasonScopeChanged {
		s.machine.Reset()
	}
}

func (s *slotService) SetScope(ctx context.Context, branchID int64, date string) error {
	if err := s.owner.SetScope(ctx, branchID, date); err != nil {
		if errors.Is(err, availabilityerrors.ErrInvalidScope) {
			return apperrors.InvalidInput(err.Error())
		}
		return apperrors.Internal("Failed to change scope", err)
	}
	return nil
}

func (s *slotService) Scope() (grid.Scope, bool) {
	return s.owner.Scope()
}

func (s *slotService) Grid() *grid.Grid {
	return s.owner.Grid()
}

func (s *slotService) Refresh(ctx context.Context) error {
	if err := s.owner.RefreshNow(ctx); err != nil {
		if errors.Is(err, availabilityerrors.ErrNoScope) {
			return apperrors.Conflict("No branch and date selected")
		}
		return apperrors.Internal("Failed to refresh availability", err)
	}
	return nil
}

// Click feeds one click to the selection machine. A completed range is
// submitted to the booking service; its error is returned together with the
// selection result.
func (s *slotService) Click(ctx context.Context, field model.Field, hour int) (*ClickResult, error) {
	scope, ok := s.owner.Scope()
	if !ok {
		return nil, apperrors.Conflict("No branch and date selected")
	}

	res := &ClickResult{Result: s.machine.Click(field, hour)}
	if res.Selection == nil {
		return res, nil
	}

	req := &model.BookingRequest{
		FieldID:     res.Selection.FieldID,
		BookingDate: scope.Date,
		StartTime:   grid.FormatHour(res.Selection.StartHour),
		EndTime:     grid.FormatHour(res.Selection.EndHour),
	}
	reservation, err := s.gateway.Submit(ctx, req)
	if err != nil {
		return res, err
	}
	if reservation.BranchID == 0 && scope.BranchID > 0 {
		reservation.BranchID = scope.BranchID
	}
	res.Reservation = reservation

	s.record(ctx, reservation)
	if err := s.owner.RefreshNow(ctx); err != nil {
		s.log.Warn("Failed to refresh after booking", "error", err)
	}
	return res, nil
}

func (s *slotService) record(ctx context.Context, r *model.Reservation) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, r); err != nil {
		s.log.Warn("Failed to record reservation history",
			"field_id", r.FieldID,
			"date", r.BookingDate,
			"error", err,
		)
	}
}

func (s *slotService) Selection() selection.State {
	return s.machine.State()
}

func (s *slotService) ResetSelection() {
	s.machine.Reset()
}

func (s *slotService) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, dispose := range s.disposers {
			dispose()
		}
		err = s.owner.Close()
	})
	return err
}
