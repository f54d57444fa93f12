package fetcher

import (
	"context"
	"fmt"
	"time"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/internal/availability/grid"
	"fieldslots/internal/availability/validator"
	"fieldslots/pkg/client"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
	"fieldslots/pkg/model"
)

const (
	resultPrimary  = "primary"
	resultCached   = "cached"
	resultFallback = "fallback"
	resultEmpty    = "empty"
	resultCanceled = "canceled"
)

// Fetcher returns a snapshot for a scope. The only error it reports is
// context cancellation; every source failure degrades to the fallback path.
type Fetcher interface {
	Fetch(ctx context.Context, branchID int64, date string) (*Snapshot, error)
}

// Invalidator is implemented by fetchers that keep a short-term cache.
type Invalidator interface {
	Invalidate(ctx context.Context, branchID int64, date string) error
}

type AvailabilityAPI interface {
	FieldAvailability(ctx context.Context, date string, branchID int64) (*client.Response, error)
}

// ReservationSource lists already-known reservations for the fallback path.
type ReservationSource interface {
	ListReservations(ctx context.Context, branchID int64, date string) ([]*model.Reservation, error)
}

type snapshotFetcher struct {
	api       AvailabilityAPI
	fallback  ReservationSource
	validator *validator.PayloadValidator
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewSnapshotFetcher(
	api AvailabilityAPI,
	fallback ReservationSource,
	validator *validator.PayloadValidator,
	m *metrics.Metrics,
	log *logger.Logger,
) Fetcher {
	return &snapshotFetcher{
		api:       api,
		fallback:  fallback,
		validator: validator,
		metrics:   m,
		log:       log,
	}
}

func (f *snapshotFetcher) Fetch(ctx context.Context, branchID int64, date string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scope := grid.Scope{BranchID: branchID, Date: date}

	snap, err := f.primary(ctx, scope)
	if err == nil {
		f.metrics.FetchResults.WithLabelValues(resultPrimary).Inc()
		return snap, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		f.metrics.FetchResults.WithLabelValues(resultCanceled).Inc()
		return nil, ctxErr
	}

	f.log.Warn("Primary availability fetch failed, using reservation fallback",
		"branch_id", branchID,
		"date", date,
		"error", err,
	)

	snap = f.fromReservations(ctx, scope)
	if ctxErr := ctx.Err(); ctxErr != nil {
		f.metrics.FetchResults.WithLabelValues(resultCanceled).Inc()
		return nil, ctxErr
	}
	return snap, nil
}

func (f *snapshotFetcher) primary(ctx context.Context, scope grid.Scope) (*Snapshot, error) {
	resp, err := f.api.FieldAvailability(ctx, scope.Date, scope.BranchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", availabilityerrors.ErrSnapshotUnavailable, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("%w: status %d: %s", availabilityerrors.ErrSnapshotUnavailable, resp.StatusCode, client.GetErrorMessage(resp))
	}

	available, err := f.validator.DecodeSnapshot(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Scope:     scope,
		Kind:      KindAvailable,
		Available: available,
		Source:    grid.SourceSnapshot,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// fromReservations never fails: any error, including a panic in a source,
// yields an empty booked snapshot.
func (f *snapshotFetcher) fromReservations(ctx context.Context, scope grid.Scope) (snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("Reservation fallback panicked",
				"branch_id", scope.BranchID,
				"date", scope.Date,
				"panic", r,
			)
			f.metrics.FetchResults.WithLabelValues(resultEmpty).Inc()
			snap = emptyBooked(scope)
		}
	}()

	if f.fallback == nil {
		f.metrics.FetchResults.WithLabelValues(resultEmpty).Inc()
		return emptyBooked(scope)
	}

	reservations, err := f.fallback.ListReservations(ctx, scope.BranchID, scope.Date)
	if err != nil {
		f.log.Warn("Reservation fallback unavailable, assuming no bookings",
			"branch_id", scope.BranchID,
			"date", scope.Date,
			"error", err,
		)
		f.metrics.FetchResults.WithLabelValues(resultEmpty).Inc()
		return emptyBooked(scope)
	}

	snap = emptyBooked(scope)
	for _, r := range reservations {
		if r == nil || !matchesScope(r, scope) {
			continue
		}
		iv, err := f.validator.ReservationInterval(r)
		if err != nil {
			f.log.Debug("Skipping unusable reservation",
				"reservation_id", r.ID,
				"field_id", r.FieldID,
				"error", err,
			)
			continue
		}
		snap.Booked = append(snap.Booked, iv)
	}

	f.metrics.FetchResults.WithLabelValues(resultFallback).Inc()
	f.log.Debug("Built snapshot from reservations",
		"branch_id", scope.BranchID,
		"date", scope.Date,
		"reservations", len(reservations),
		"intervals", len(snap.Booked),
	)
	return snap
}

func matchesScope(r *model.Reservation, scope grid.Scope) bool {
	if len(r.BookingDate) < len(grid.DateLayout) || r.BookingDate[:len(grid.DateLayout)] != scope.Date {
		return false
	}
	return scope.MatchesBranch(r.BranchID)
}
