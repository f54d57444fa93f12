package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// BookingAPI talks to the external booking service, the system of record for
// fields and reservations.
type BookingAPI struct {
	httpClient *HttpClient
}

func NewBookingAPI(baseURL string, timeout time.Duration) *BookingAPI {
	return &BookingAPI{
		httpClient: NewHttpClient(baseURL, timeout),
	}
}

func (c *BookingAPI) FieldAvailability(ctx context.Context, date string, branchID int64) (*Response, error) {
	q := url.Values{}
	q.Set("date", date)
	if branchID > 0 {
		q.Set("branchId", strconv.FormatInt(branchID, 10))
	}
	q.Set("noCache", "true")

	return c.httpClient.Get(ctx, "/fields/availability?"+q.Encode())
}

func (c *BookingAPI) ListBookings(ctx context.Context, branchID int64, date string) (*Response, error) {
	q := url.Values{}
	if branchID > 0 {
		q.Set("branchId", strconv.FormatInt(branchID, 10))
	}
	if date != "" {
		q.Set("date", date)
	}

	path := "/bookings"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.httpClient.Get(ctx, path)
}

func (c *BookingAPI) CreateBooking(ctx context.Context, body any) (*Response, error) {
	return c.httpClient.Post(ctx, "/bookings", body)
}
