package grid

import (
	"slices"
	"time"
)

// Builder turns raw intervals into per-field booked hour sets for one venue
// timezone and candidate hour list.
type Builder struct {
	loc        *time.Location
	candidates []int
}

func NewBuilder(loc *time.Location, candidates []int) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{loc: loc, candidates: slices.Clone(candidates)}
}

func (b *Builder) Location() *time.Location { return b.loc }

func (b *Builder) Candidates() []int { return slices.Clone(b.candidates) }

// FromAvailable inverts availability: every field present in the input gets
// candidates minus its available hours. A field listed with no intervals is
// fully booked.
func (b *Builder) FromAvailable(available map[int64][]RawInterval) map[int64][]int {
	booked := make(map[int64][]int, len(available))
	for fieldID, intervals := range available {
		open := make(map[int]bool, len(b.candidates))
		for _, iv := range intervals {
			hours, fullDay := CoveredHours(iv, b.loc)
			if fullDay {
				for _, h := range b.candidates {
					open[h] = true
				}
				break
			}
			for _, h := range hours {
				open[h] = true
			}
		}
		booked[fieldID] = b.subtract(open)
	}
	return booked
}

// FromBooked marks every candidate hour a booked interval touches. Fields
// without bookings are left out.
func (b *Builder) FromBooked(intervals []RawInterval) map[int64][]int {
	hit := make(map[int64]map[int]bool)
	for _, iv := range intervals {
		hours, fullDay := ReservedHours(iv, b.loc)
		if fullDay {
			hours = b.candidates
		}
		for _, h := range hours {
			if !slices.Contains(b.candidates, h) {
				continue
			}
			if hit[iv.FieldID] == nil {
				hit[iv.FieldID] = make(map[int]bool)
			}
			hit[iv.FieldID][h] = true
		}
	}

	booked := make(map[int64][]int, len(hit))
	for fieldID, hours := range hit {
		for _, h := range b.candidates {
			if hours[h] {
				booked[fieldID] = append(booked[fieldID], h)
			}
		}
	}
	return booked
}

// FromBuckets handles per-hour flags. Candidate hours a field does not list
// count as booked.
func (b *Builder) FromBuckets(fields map[int64]map[int]bool) map[int64][]int {
	booked := make(map[int64][]int, len(fields))
	for fieldID, flags := range fields {
		open := make(map[int]bool, len(flags))
		for h, isAvailable := range flags {
			if isAvailable {
				open[h] = true
			}
		}
		booked[fieldID] = b.subtract(open)
	}
	return booked
}

func (b *Builder) subtract(open map[int]bool) []int {
	out := []int{}
	for _, h := range b.candidates {
		if !open[h] {
			out = append(out, h)
		}
	}
	return out
}
