package model

// Wire shapes shared by the snapshot endpoint and the live feed.

type TimeSlot struct {
	Start string `json:"start" validate:"required,timestamp"`
	End   string `json:"end" validate:"required,timestamp"`
}

type FieldAvailability struct {
	FieldID            int64      `json:"fieldId" validate:"required,gt=0"`
	AvailableTimeSlots []TimeSlot `json:"availableTimeSlots" validate:"required,dive"`
}

// AvailabilityEnvelope is the snapshot response:
// {success: true, data: [{fieldId, availableTimeSlots}]}.
type AvailabilityEnvelope struct {
	Success *bool               `json:"success" validate:"required"`
	Data    []FieldAvailability `json:"data" validate:"required,min=1,dive"`
}

type HourAvailability struct {
	Hour        *int  `json:"hour" validate:"required,min=0,max=23"`
	IsAvailable *bool `json:"isAvailable" validate:"required"`
}

type BucketedField struct {
	ID             int64              `json:"id" validate:"required,gt=0"`
	AvailableHours []HourAvailability `json:"availableHours" validate:"required,dive"`
}

// BucketedFrame is the pre-bucketed live payload:
// {fields: [{id, availableHours: [{hour, isAvailable}]}]}.
type BucketedFrame struct {
	Fields []BucketedField `json:"fields" validate:"required,dive"`
}

// ReservationList accepts the {success, data} wrapper of the bookings listing.
type ReservationList struct {
	Data []*Reservation `json:"data"`
}
