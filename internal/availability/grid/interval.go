package grid

import (
	"fmt"
	"slices"
	"time"
)

// RawInterval is a half-open [Start, End) window for one field in absolute
// time. Depending on the source it means "available" or "booked".
type RawInterval struct {
	FieldID int64     `json:"fieldId"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// HourSlot is the bookable window [Hour:00, Hour+1:00) in venue local time.
type HourSlot struct {
	FieldID int64
	Hour    int
}

func (s HourSlot) String() string {
	return fmt.Sprintf("field %d @ %s", s.FieldID, FormatHour(s.Hour))
}

func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// CandidateHours lists the hourly buckets from opening (inclusive) to
// closing (exclusive).
func CandidateHours(opening, closing int) []int {
	if closing <= opening {
		return nil
	}
	hours := make([]int, 0, closing-opening)
	for h := opening; h < closing; h++ {
		hours = append(hours, h)
	}
	return hours
}

// span reduces an interval to local hour bounds. endHour is the raw local
// hour of the end, so an interval ending at midnight reports 0.
func span(iv RawInterval, loc *time.Location) (startHour, endHour int, endsAtMidnight, fullDay bool) {
	start := iv.Start.In(loc)
	end := iv.End.In(loc)

	next := start.AddDate(0, 0, 1)
	endsNextDay := end.Year() == next.Year() && end.YearDay() == next.YearDay()
	if start.Hour() == 0 && end.Hour() == 0 && endsNextDay {
		return 0, 0, true, true
	}

	endsAtMidnight = end.Hour() == 0 && end.Minute() == 0 && end.After(start)
	return start.Hour(), end.Hour(), endsAtMidnight, false
}

// CoveredHours returns the local hours an available window opens, ascending.
// Hours run from the start hour up to, not including, the raw end hour; a
// window ending exactly at local midnight additionally opens 23. fullDay is
// set for a local 00:00 to next-day 00:00 window.
func CoveredHours(iv RawInterval, loc *time.Location) (hours []int, fullDay bool) {
	startHour, endHour, endsAtMidnight, fullDay := span(iv, loc)
	if fullDay {
		return nil, true
	}
	for h := startHour; h < endHour; h++ {
		hours = append(hours, h)
	}
	if endsAtMidnight && !slices.Contains(hours, 23) {
		hours = append(hours, 23)
	}
	return hours, false
}

// ReservedHours returns the local hours a booked range occupies. A booking
// ending at local midnight holds every hour from its start through 23.
func ReservedHours(iv RawInterval, loc *time.Location) (hours []int, fullDay bool) {
	startHour, endHour, endsAtMidnight, fullDay := span(iv, loc)
	if fullDay {
		return nil, true
	}
	if endsAtMidnight {
		endHour = 24
	}
	for h := startHour; h < endHour; h++ {
		hours = append(hours, h)
	}
	return hours, false
}
