package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"fieldslots/pkg/client"
	"fieldslots/pkg/model"
)

type BookingLister interface {
	ListBookings(ctx context.Context, branchID int64, date string) (*client.Response, error)
}

// HTTPReservationSource reads reservations from the booking service listing.
type HTTPReservationSource struct {
	api BookingLister
}

func NewHTTPReservationSource(api BookingLister) *HTTPReservationSource {
	return &HTTPReservationSource{api: api}
}

func (s *HTTPReservationSource) ListReservations(ctx context.Context, branchID int64, date string) ([]*model.Reservation, error) {
	resp, err := s.api.ListBookings(ctx, branchID, date)
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("listing bookings: status %d: %s", resp.StatusCode, client.GetErrorMessage(resp))
	}

	if trimmed := bytes.TrimSpace(resp.Body); len(trimmed) > 0 && trimmed[0] == '[' {
		var list []*model.Reservation
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decoding bookings: %w", err)
		}
		return list, nil
	}

	var wrapped model.ReservationList
	if err := resp.DecodeJSON(&wrapped); err != nil {
		return nil, fmt.Errorf("decoding bookings: %w", err)
	}
	return wrapped.Data, nil
}
