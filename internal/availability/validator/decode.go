package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	availabilityerrors "fieldslots/internal/availability/errors"
	"fieldslots/internal/availability/grid"
	"fieldslots/pkg/model"
)

type UpdateKind int

const (
	// UpdateAvailable carries available intervals per field.
	UpdateAvailable UpdateKind = iota
	// UpdateBuckets carries per-hour isAvailable flags per field.
	UpdateBuckets
)

// LiveUpdate is a decoded availability push, normalised to one of two forms.
type LiveUpdate struct {
	Kind      UpdateKind
	Available map[int64][]grid.RawInterval
	Buckets   map[int64]map[int]bool
}

// DecodeSnapshot accepts only the {success: true, data: [...]} envelope with
// at least one field. Bare arrays and empty data fail so the caller falls back.
func (pv *PayloadValidator) DecodeSnapshot(body []byte) (map[int64][]grid.RawInterval, error) {
	if isArray(body) {
		return nil, fmt.Errorf("%w: bare array is not a snapshot envelope", availabilityerrors.ErrMalformedPayload)
	}
	fields, err := pv.decodeEnvelope(body)
	if err != nil {
		return nil, err
	}
	return pv.ToIntervals(fields)
}

// DecodeLiveUpdate tries, in order: a bare array, the {success, data}
// envelope, then the pre-bucketed {fields: [...]} frame. The first shape that
// validates wins; a payload matching none is rejected whole.
func (pv *PayloadValidator) DecodeLiveUpdate(payload []byte) (*LiveUpdate, error) {
	if isArray(payload) {
		available, err := pv.decodeFieldArray(payload)
		if err != nil {
			return nil, err
		}
		return &LiveUpdate{Kind: UpdateAvailable, Available: available}, nil
	}

	if fields, err := pv.decodeEnvelope(payload); err == nil {
		available, err := pv.ToIntervals(fields)
		if err != nil {
			return nil, err
		}
		return &LiveUpdate{Kind: UpdateAvailable, Available: available}, nil
	}

	var frame model.BucketedFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", availabilityerrors.ErrMalformedPayload, err)
	}
	if err := pv.Validate(&frame); err != nil {
		return nil, fmt.Errorf("%w: %v", availabilityerrors.ErrMalformedPayload, err)
	}

	buckets := make(map[int64]map[int]bool, len(frame.Fields))
	for _, f := range frame.Fields {
		flags := buckets[f.ID]
		if flags == nil {
			flags = make(map[int]bool, len(f.AvailableHours))
			buckets[f.ID] = flags
		}
		for _, h := range f.AvailableHours {
			flags[*h.Hour] = flags[*h.Hour] || *h.IsAvailable
		}
	}
	return &LiveUpdate{Kind: UpdateBuckets, Buckets: buckets}, nil
}

func (pv *PayloadValidator) decodeFieldArray(body []byte) (map[int64][]grid.RawInterval, error) {
	var fields []model.FieldAvailability
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", availabilityerrors.ErrMalformedPayload, err)
	}
	for i := range fields {
		if err := pv.Validate(&fields[i]); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", availabilityerrors.ErrMalformedPayload, i, err)
		}
	}
	return pv.ToIntervals(fields)
}

func (pv *PayloadValidator) decodeEnvelope(body []byte) ([]model.FieldAvailability, error) {
	var env model.AvailabilityEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", availabilityerrors.ErrMalformedPayload, err)
	}
	if err := pv.Validate(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", availabilityerrors.ErrMalformedPayload, err)
	}
	if !*env.Success {
		return nil, fmt.Errorf("%w: success=false", availabilityerrors.ErrMalformedPayload)
	}
	return env.Data, nil
}

// ToIntervals converts validated wire slots. Repeated field ids are merged.
func (pv *PayloadValidator) ToIntervals(fields []model.FieldAvailability) (map[int64][]grid.RawInterval, error) {
	out := make(map[int64][]grid.RawInterval, len(fields))
	for _, f := range fields {
		if _, ok := out[f.FieldID]; !ok {
			out[f.FieldID] = []grid.RawInterval{}
		}
		for _, slot := range f.AvailableTimeSlots {
			start, err := ParseTimestamp(slot.Start, pv.loc)
			if err != nil {
				return nil, fmt.Errorf("%w: field %d: %v", availabilityerrors.ErrMalformedPayload, f.FieldID, err)
			}
			end, err := ParseTimestamp(slot.End, pv.loc)
			if err != nil {
				return nil, fmt.Errorf("%w: field %d: %v", availabilityerrors.ErrMalformedPayload, f.FieldID, err)
			}
			out[f.FieldID] = append(out[f.FieldID], grid.RawInterval{FieldID: f.FieldID, Start: start, End: end})
		}
	}
	return out, nil
}

// ReservationInterval turns a listed reservation into a booked interval.
// Start and end may be full timestamps or local HH:MM on the booking date.
func (pv *PayloadValidator) ReservationInterval(r *model.Reservation) (grid.RawInterval, error) {
	if err := pv.Validate(r); err != nil {
		return grid.RawInterval{}, err
	}
	date := r.BookingDate[:len(grid.DateLayout)]

	start, err := pv.reservationTime(date, r.StartTime)
	if err != nil {
		return grid.RawInterval{}, err
	}
	end, err := pv.reservationTime(date, r.EndTime)
	if err != nil {
		return grid.RawInterval{}, err
	}
	if !end.After(start) {
		// 22:00-00:00 style bookings end at next midnight
		if end.Hour() == 0 && end.Minute() == 0 {
			end = end.AddDate(0, 0, 1)
		} else {
			return grid.RawInterval{}, fmt.Errorf("reservation %s ends before it starts", r.ID)
		}
	}
	return grid.RawInterval{FieldID: r.FieldID, Start: start, End: end}, nil
}

func (pv *PayloadValidator) reservationTime(date, value string) (time.Time, error) {
	if clockPattern.MatchString(value) {
		return time.ParseInLocation(grid.DateLayout+" 15:04", date+" "+value, pv.loc)
	}
	return ParseTimestamp(value, pv.loc)
}

func isArray(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
