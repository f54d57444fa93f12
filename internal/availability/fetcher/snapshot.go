package fetcher

import (
	"time"

	"fieldslots/internal/availability/grid"
)

type Kind string

const (
	// KindAvailable snapshots list open windows that must be inverted.
	KindAvailable Kind = "available"
	// KindBooked snapshots list reservations directly.
	KindBooked Kind = "booked"
)

// Snapshot is one point-in-time availability reading for a scope.
type Snapshot struct {
	Scope     grid.Scope                   `json:"scope"`
	Kind      Kind                         `json:"kind"`
	Available map[int64][]grid.RawInterval `json:"available,omitempty"`
	Booked    []grid.RawInterval           `json:"booked,omitempty"`
	Source    grid.Source                  `json:"source"`
	FetchedAt time.Time                    `json:"fetchedAt"`
}

// BookedHours reduces the snapshot to per-field booked hours.
func (s *Snapshot) BookedHours(b *grid.Builder) map[int64][]int {
	if s.Kind == KindBooked {
		return b.FromBooked(s.Booked)
	}
	return b.FromAvailable(s.Available)
}

func emptyBooked(scope grid.Scope) *Snapshot {
	return &Snapshot{
		Scope:     scope,
		Kind:      KindBooked,
		Booked:    []grid.RawInterval{},
		Source:    grid.SourceFallback,
		FetchedAt: time.Now().UTC(),
	}
}
