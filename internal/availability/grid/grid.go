package grid

import (
	"slices"
	"time"
)

type Source string

const (
	SourceEmpty    Source = "empty"
	SourceSnapshot Source = "snapshot"
	SourceFallback Source = "fallback"
	SourceLive     Source = "live"
)

// Grid is an immutable per-field set of booked hours for one scope.
//
// A field missing from the grid has no data and is treated as fully open by
// IsBooked/IsAvailable; Booked exposes the difference through its ok result.
type Grid struct {
	scope      Scope
	version    uint64
	source     Source
	candidates []int
	booked     map[int64][]int
	updatedAt  time.Time
}

func New(scope Scope, version uint64, source Source, candidates []int, booked map[int64][]int) *Grid {
	g := &Grid{
		scope:      scope,
		version:    version,
		source:     source,
		candidates: slices.Clone(candidates),
		booked:     make(map[int64][]int, len(booked)),
		updatedAt:  time.Now().UTC(),
	}
	for fieldID, hours := range booked {
		h := slices.Clone(hours)
		slices.Sort(h)
		g.booked[fieldID] = slices.Compact(h)
	}
	return g
}

func Empty(scope Scope, version uint64, candidates []int) *Grid {
	return New(scope, version, SourceEmpty, candidates, nil)
}

func (g *Grid) Scope() Scope         { return g.scope }
func (g *Grid) Version() uint64      { return g.version }
func (g *Grid) Source() Source       { return g.source }
func (g *Grid) UpdatedAt() time.Time { return g.updatedAt }

func (g *Grid) Candidates() []int {
	return slices.Clone(g.candidates)
}

// Booked returns the booked hours of a field. ok is false when the grid holds
// no data for the field, which callers map to "default open".
func (g *Grid) Booked(fieldID int64) ([]int, bool) {
	hours, ok := g.booked[fieldID]
	if !ok {
		return nil, false
	}
	return slices.Clone(hours), true
}

func (g *Grid) IsBooked(fieldID int64, hour int) bool {
	_, found := slices.BinarySearch(g.booked[fieldID], hour)
	return found
}

// InHours reports whether hour is one of the venue's bookable buckets.
func (g *Grid) InHours(hour int) bool {
	return slices.Contains(g.candidates, hour)
}

func (g *Grid) IsAvailable(fieldID int64, hour int) bool {
	return g.InHours(hour) && !g.IsBooked(fieldID, hour)
}

func (g *Grid) Fields() []int64 {
	ids := make([]int64, 0, len(g.booked))
	for id := range g.booked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SameBookings compares content only, ignoring version, source and time.
func (g *Grid) SameBookings(other *Grid) bool {
	if other == nil || g.scope != other.scope || len(g.booked) != len(other.booked) {
		return false
	}
	for id, hours := range g.booked {
		otherHours, ok := other.booked[id]
		if !ok || !slices.Equal(hours, otherHours) {
			return false
		}
	}
	return true
}

type FieldView struct {
	FieldID        int64 `json:"fieldId"`
	BookedHours    []int `json:"bookedHours"`
	AvailableHours []int `json:"availableHours"`
}

type View struct {
	BranchID   int64       `json:"branchId"`
	Date       string      `json:"date"`
	Version    uint64      `json:"version"`
	Source     Source      `json:"source"`
	Candidates []int       `json:"candidateHours"`
	Fields     []FieldView `json:"fields"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

func (g *Grid) View() View {
	v := View{
		BranchID:   g.scope.BranchID,
		Date:       g.scope.Date,
		Version:    g.version,
		Source:     g.source,
		Candidates: g.Candidates(),
		Fields:     make([]FieldView, 0, len(g.booked)),
		UpdatedAt:  g.updatedAt,
	}
	for _, id := range g.Fields() {
		booked := g.booked[id]
		fv := FieldView{FieldID: id, BookedHours: slices.Clone(booked), AvailableHours: []int{}}
		for _, h := range g.candidates {
			if _, found := slices.BinarySearch(booked, h); !found {
				fv.AvailableHours = append(fv.AvailableHours, h)
			}
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}
