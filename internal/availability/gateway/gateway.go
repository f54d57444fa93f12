package gateway

import (
	"context"
	"errors"
	"strings"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/internal/availability/validator"
	"fieldslots/pkg/client"
	apperrors "fieldslots/pkg/errors"
	"fieldslots/pkg/logger"
	"fieldslots/pkg/metrics"
	"fieldslots/pkg/model"
)

const (
	resultCreated     = "created"
	resultRejected    = "rejected"
	resultInvalid     = "invalid"
	resultUnavailable = "unavailable"
)

type Gateway interface {
	Submit(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error)
}

type BookingCreator interface {
	CreateBooking(ctx context.Context, body any) (*client.Response, error)
}

type bookingGateway struct {
	api       BookingCreator
	validator *validator.PayloadValidator
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewBookingGateway(api BookingCreator, v *validator.PayloadValidator, m *metrics.Metrics, log *logger.Logger) Gateway {
	return &bookingGateway{
		api:       api,
		validator: v,
		metrics:   m,
		log:       log,
	}
}

// Submit posts the request once. Remote refusals come back as a Rejected
// AppError carrying the remote message unchanged.
func (g *bookingGateway) Submit(ctx context.Context, req *model.BookingRequest) (*model.Reservation, error) {
	if err := g.validator.ValidateBookingRequest(req); err != nil {
		g.metrics.Submissions.WithLabelValues(resultInvalid).Inc()
		return nil, validator.ToAppError(err)
	}

	resp, err := g.api.CreateBooking(ctx, req)
	if err != nil {
		g.metrics.Submissions.WithLabelValues(resultUnavailable).Inc()
		g.log.Error("Booking submission failed", "field_id", req.FieldID, "date", req.BookingDate, "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.Timeout("Booking service did not respond in time")
		}
		return nil, apperrors.Unavailable("Booking service")
	}

	if !resp.IsSuccess() {
		msg := client.GetErrorMessage(resp)
		g.metrics.Submissions.WithLabelValues(resultRejected).Inc()
		g.log.Warn("Booking rejected",
			"field_id", req.FieldID,
			"date", req.BookingDate,
			"start_time", req.StartTime,
			"end_time", req.EndTime,
			"status", resp.StatusCode,
			"message", msg,
		)
		rejected := apperrors.Rejected(msg, resp.StatusCode)
		rejected.Err = availabilityerrors.ErrSubmissionRejected
		return nil, rejected
	}

	g.metrics.Submissions.WithLabelValues(resultCreated).Inc()
	reservation := g.decodeReservation(resp, req)
	g.log.Info("Booking created",
		"reservation_id", reservation.ID,
		"field_id", reservation.FieldID,
		"date", reservation.BookingDate,
		"start_time", reservation.StartTime,
		"end_time", reservation.EndTime,
	)
	return reservation, nil
}

// decodeReservation accepts {data: reservation} or a bare reservation. A
// body without a usable reservation still counts as created; the request
// values are reported back in that case.
func (g *bookingGateway) decodeReservation(resp *client.Response, req *model.BookingRequest) *model.Reservation {
	var wrapped struct {
		Data *model.Reservation `json:"data"`
	}
	if err := resp.DecodeJSON(&wrapped); err == nil && wrapped.Data != nil && wrapped.Data.FieldID > 0 {
		return wrapped.Data
	}

	var bare model.Reservation
	if err := resp.DecodeJSON(&bare); err == nil && bare.FieldID > 0 {
		return &bare
	}

	if len(strings.TrimSpace(string(resp.Body))) > 0 {
		g.log.Warn("Unrecognised booking response body", "status", resp.StatusCode)
	}
	return FromRequest(req)
}

// FromRequest mirrors a booking request as a reservation record.
func FromRequest(req *model.BookingRequest) *model.Reservation {
	return &model.Reservation{
		FieldID:     req.FieldID,
		BookingDate: req.BookingDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      "created",
	}
}
