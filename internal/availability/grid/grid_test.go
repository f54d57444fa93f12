package grid

import (
	"slices"
	"testing"
	"time"
)

var day = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return day.Add(time.Duration(hour) * time.Hour)
}

func TestCandidateHours(t *testing.T) {
	got := CandidateHours(8, 24)
	if len(got) != 16 || got[0] != 8 || got[15] != 23 {
		t.Fatalf("unexpected candidates: %v", got)
	}
	if CandidateHours(10, 10) != nil {
		t.Error("expected no candidates for empty range")
	}
}

func TestCoveredHours(t *testing.T) {
	tests := []struct {
		name     string
		iv       RawInterval
		expected []int
		fullDay  bool
	}{
		{"two hours", RawInterval{Start: at(8), End: at(10)}, []int{8, 9}, false},
		{"midnight end opens only 23", RawInterval{Start: at(20), End: at(24)}, []int{23}, false},
		{"last hour to midnight", RawInterval{Start: at(23), End: at(24)}, []int{23}, false},
		{"full day", RawInterval{Start: at(0), End: at(24)}, nil, true},
		{"zero length", RawInterval{Start: at(9), End: at(9)}, nil, false},
		{"half hour end", RawInterval{Start: at(8), End: at(9).Add(30 * time.Minute)}, []int{8}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fullDay := CoveredHours(tt.iv, time.UTC)
			if fullDay != tt.fullDay {
				t.Fatalf("fullDay = %v, want %v", fullDay, tt.fullDay)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("hours = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReservedHours(t *testing.T) {
	tests := []struct {
		name     string
		iv       RawInterval
		expected []int
		fullDay  bool
	}{
		{"two hours", RawInterval{Start: at(8), End: at(10)}, []int{8, 9}, false},
		{"through midnight", RawInterval{Start: at(21), End: at(24)}, []int{21, 22, 23}, false},
		{"full day", RawInterval{Start: at(0), End: at(24)}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fullDay := ReservedHours(tt.iv, time.UTC)
			if fullDay != tt.fullDay {
				t.Fatalf("fullDay = %v, want %v", fullDay, tt.fullDay)
			}
			if !slices.Equal(got, tt.expected) {
				t.Errorf("hours = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCoveredHours_UsesVenueLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	iv := RawInterval{Start: time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), End: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}

	got, _ := CoveredHours(iv, loc)
	if !slices.Equal(got, []int{10, 11}) {
		t.Errorf("expected local hours [10 11], got %v", got)
	}
}

func TestBuilder_FromBooked(t *testing.T) {
	b := NewBuilder(time.UTC, CandidateHours(8, 24))

	booked := b.FromBooked([]RawInterval{{FieldID: 5, Start: at(8), End: at(10)}})

	if !slices.Equal(booked[5], []int{8, 9}) {
		t.Fatalf("expected field 5 booked at 8 and 9, got %v", booked[5])
	}
	g := New(Scope{BranchID: 1, Date: "2024-06-01"}, 1, SourceFallback, b.Candidates(), booked)
	if !g.IsAvailable(5, 10) {
		t.Error("hour 10 should stay open")
	}
}

func TestBuilder_FromBooked_ThroughMidnight(t *testing.T) {
	b := NewBuilder(time.UTC, CandidateHours(8, 24))

	booked := b.FromBooked([]RawInterval{{FieldID: 7, Start: at(22), End: at(24)}})

	if !slices.Equal(booked[7], []int{22, 23}) {
		t.Errorf("expected [22 23] booked, got %v", booked[7])
	}
}

func TestBuilder_FromBooked_SkipsHoursOutsideCandidates(t *testing.T) {
	b := NewBuilder(time.UTC, CandidateHours(8, 24))

	booked := b.FromBooked([]RawInterval{{FieldID: 2, Start: at(5), End: at(7)}})

	if _, ok := booked[2]; ok {
		t.Errorf("expected no entry for a booking before opening, got %v", booked[2])
	}
}

func TestBuilder_FromAvailable(t *testing.T) {
	b := NewBuilder(time.UTC, CandidateHours(8, 24))

	t.Run("inverts available window", func(t *testing.T) {
		booked := b.FromAvailable(map[int64][]RawInterval{5: {{FieldID: 5, Start: at(8), End: at(10)}}})
		if slices.Contains(booked[5], 8) || slices.Contains(booked[5], 9) {
			t.Errorf("8 and 9 should be open, got %v", booked[5])
		}
		if len(booked[5]) != 14 {
			t.Errorf("expected 14 booked hours, got %d", len(booked[5]))
		}
	})

	t.Run("full day has nothing booked", func(t *testing.T) {
		booked := b.FromAvailable(map[int64][]RawInterval{3: {{FieldID: 3, Start: at(0), End: at(24)}}})
		hours, ok := booked[3]
		if !ok || len(hours) != 0 {
			t.Errorf("expected empty booked set, got %v (ok=%v)", hours, ok)
		}
	})

	t.Run("field without intervals is fully booked", func(t *testing.T) {
		booked := b.FromAvailable(map[int64][]RawInterval{4: nil})
		if len(booked[4]) != 16 {
			t.Errorf("expected all 16 hours booked, got %v", booked[4])
		}
	})

	t.Run("evening window through midnight", func(t *testing.T) {
		booked := b.FromAvailable(map[int64][]RawInterval{6: {{FieldID: 6, Start: at(20), End: at(24)}}})
		if slices.Contains(booked[6], 23) {
			t.Errorf("23 should be open, got %v", booked[6])
		}
		for _, h := range []int{20, 21, 22} {
			if !slices.Contains(booked[6], h) {
				t.Errorf("%d should stay booked, got %v", h, booked[6])
			}
		}
	})
}

func TestBuilder_FromBuckets(t *testing.T) {
	b := NewBuilder(time.UTC, CandidateHours(8, 12))

	booked := b.FromBuckets(map[int64]map[int]bool{1: {8: true, 9: false, 10: true}})

	if !slices.Equal(booked[1], []int{9, 11}) {
		t.Errorf("expected [9 11] booked, got %v", booked[1])
	}
}

func TestGrid_BookedOption(t *testing.T) {
	g := New(Scope{BranchID: 1, Date: "2024-06-01"}, 3, SourceSnapshot, CandidateHours(8, 24), map[int64][]int{1: {10, 9, 9}})

	hours, ok := g.Booked(1)
	if !ok || !slices.Equal(hours, []int{9, 10}) {
		t.Fatalf("expected sorted unique [9 10], got %v (ok=%v)", hours, ok)
	}
	if _, ok := g.Booked(99); ok {
		t.Error("unknown field should report no data")
	}
	if !g.IsAvailable(99, 12) {
		t.Error("unknown field should default to open")
	}
	if g.IsAvailable(1, 7) {
		t.Error("hour before opening should not be available")
	}
}

func TestGrid_IsImmutable(t *testing.T) {
	input := map[int64][]int{1: {9}}
	g := New(Scope{Date: "2024-06-01"}, 1, SourceSnapshot, CandidateHours(8, 24), input)

	input[1][0] = 12
	hours, _ := g.Booked(1)
	hours[0] = 15

	if !g.IsBooked(1, 9) || g.IsBooked(1, 12) || g.IsBooked(1, 15) {
		t.Error("grid content changed through caller-held slices")
	}
}

func TestGrid_SameBookings(t *testing.T) {
	scope := Scope{BranchID: 1, Date: "2024-06-01"}
	a := New(scope, 1, SourceSnapshot, CandidateHours(8, 24), map[int64][]int{1: {9}})
	b := New(scope, 2, SourceLive, CandidateHours(8, 24), map[int64][]int{1: {9}})
	c := New(scope, 3, SourceLive, CandidateHours(8, 24), map[int64][]int{1: {10}})

	if !a.SameBookings(b) {
		t.Error("same content should compare equal")
	}
	if a.SameBookings(c) {
		t.Error("different content should not compare equal")
	}
}

func TestGrid_View(t *testing.T) {
	g := New(Scope{BranchID: 2, Date: "2024-06-01"}, 1, SourceSnapshot, CandidateHours(8, 11), map[int64][]int{7: {9}})

	v := g.View()
	if len(v.Fields) != 1 || !slices.Equal(v.Fields[0].AvailableHours, []int{8, 10}) {
		t.Errorf("unexpected view: %+v", v)
	}
}

func TestScope(t *testing.T) {
	s := Scope{BranchID: 3, Date: "2024-06-01"}
	if s.Key() != "3:2024-06-01" || s.Room() != "2024-06-01" {
		t.Errorf("unexpected key/room: %s %s", s.Key(), s.Room())
	}
	if err := s.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (Scope{Date: "06/01/2024"}).Validate(); err == nil {
		t.Error("expected error for bad date")
	}
	if !s.MatchesBranch(0) || !s.MatchesBranch(3) || s.MatchesBranch(4) {
		t.Error("unexpected branch matching")
	}
}
