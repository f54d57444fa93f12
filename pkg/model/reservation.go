package model

import "time"

// Reservation is one existing booking as listed by the booking service and
// mirrored into the history store.
type Reservation struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty"`
	FieldID     int64     `json:"fieldId" bson:"field_id" validate:"required,gt=0"`
	BranchID    int64     `json:"branchId,omitempty" bson:"branch_id,omitempty" validate:"omitempty,gt=0"`
	BookingDate string    `json:"bookingDate" bson:"booking_date" validate:"required,booking_date"`
	StartTime   string    `json:"startTime" bson:"start_time" validate:"required"`
	EndTime     string    `json:"endTime" bson:"end_time" validate:"required"`
	Status      string    `json:"status,omitempty" bson:"status,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty" bson:"created_at,omitempty"`
}

// BookingRequest is the validated tuple handed to the booking service.
// Times are local "HH:MM" strings; EndTime is exclusive.
type BookingRequest struct {
	FieldID     int64  `json:"fieldId" validate:"required,gt=0"`
	BookingDate string `json:"bookingDate" validate:"required,date_only"`
	StartTime   string `json:"startTime" validate:"required,clock"`
	EndTime     string `json:"endTime" validate:"required,clock"`
}
