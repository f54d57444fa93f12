package validator

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"fieldslots/internal/availability/grid"
	apperrors "fieldslots/pkg/errors"
	"fieldslots/pkg/model"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	return fmt.Sprintf("validation failed: %d error(s)", len(v))
}

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts ISO8601 with or without an offset. Values without an
// offset are read in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}

// PayloadValidator checks wire payloads from the booking service and the live
// feed, plus outbound booking requests.
type PayloadValidator struct {
	validate *validator.Validate
	loc      *time.Location
}

func NewPayloadValidator(loc *time.Location) *PayloadValidator {
	if loc == nil {
		loc = time.UTC
	}
	v := validator.New()
	pv := &PayloadValidator{validate: v, loc: loc}

	_ = v.RegisterValidation("timestamp", pv.validateTimestamp)
	_ = v.RegisterValidation("date_only", validateDateOnly)
	_ = v.RegisterValidation("booking_date", validateBookingDate)
	_ = v.RegisterValidation("clock", validateClock)

	v.RegisterStructValidation(pv.validateTimeSlot, model.TimeSlot{})
	v.RegisterStructValidation(validateBookingWindow, model.BookingRequest{})

	return pv
}

func (pv *PayloadValidator) Location() *time.Location { return pv.loc }

func (pv *PayloadValidator) validateTimestamp(fl validator.FieldLevel) bool {
	_, err := ParseTimestamp(fl.Field().String(), pv.loc)
	return err == nil
}

func validateDateOnly(fl validator.FieldLevel) bool {
	_, err := time.Parse(grid.DateLayout, fl.Field().String())
	return err == nil
}

// booking_date accepts a bare date or a timestamp whose first ten characters
// are one.
func validateBookingDate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) < len(grid.DateLayout) {
		return false
	}
	_, err := time.Parse(grid.DateLayout, s[:len(grid.DateLayout)])
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

func (pv *PayloadValidator) validateTimeSlot(sl validator.StructLevel) {
	slot := sl.Current().Interface().(model.TimeSlot)
	start, errStart := ParseTimestamp(slot.Start, pv.loc)
	end, errEnd := ParseTimestamp(slot.End, pv.loc)
	if errStart != nil || errEnd != nil {
		return
	}
	if !end.After(start) {
		sl.ReportError(slot.End, "End", "end", "after_start", "")
	}
}

func validateBookingWindow(sl validator.StructLevel) {
	req := sl.Current().Interface().(model.BookingRequest)
	if !clockPattern.MatchString(req.StartTime) || !clockPattern.MatchString(req.EndTime) {
		return
	}
	// zero-padded HH:MM sorts lexically
	if req.EndTime <= req.StartTime {
		sl.ReportError(req.EndTime, "EndTime", "endTime", "after_start", "")
	}
}

// Validate runs struct validation on any request or payload type.
func (pv *PayloadValidator) Validate(v any) error {
	if err := pv.validate.Struct(v); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (pv *PayloadValidator) ValidateBookingRequest(req *model.BookingRequest) error {
	return pv.Validate(req)
}

// ToAppError maps validation failures to a 422 AppError; other errors pass
// through unchanged.
func ToAppError(err error) error {
	var validationErrs ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	return apperrors.Validation("Validation failed", map[string]any{
		"errors": []ValidationError(validationErrs),
	})
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, 0, len(errs))
	for _, err := range errs {
		out = append(out, ValidationError{
			Field:   err.Namespace(),
			Message: message(err),
		})
	}
	return out
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "gt", "gte", "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", err.Param())
	case "timestamp":
		return "must be an ISO8601 timestamp"
	case "date_only":
		return "must be a YYYY-MM-DD date"
	case "booking_date":
		return "must start with a YYYY-MM-DD date"
	case "clock":
		return "must be an HH:MM time"
	case "after_start":
		return "must be after the start"
	default:
		return fmt.Sprintf("failed %q check", err.Tag())
	}
}
