package grid

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Scope is the (branch, date) pair all live state is keyed to. BranchID 0
// means "all branches".
type Scope struct {
	BranchID int64  `json:"branchId"`
	Date     string `json:"date"`
}

// Key is the composite used for short-term cache entries.
func (s Scope) Key() string {
	return fmt.Sprintf("%d:%s", s.BranchID, s.Date)
}

// Room is the live-feed channel name. Rooms are keyed by date only; the
// branch travels as metadata.
func (s Scope) Room() string {
	return s.Date
}

func (s Scope) IsZero() bool {
	return s.BranchID == 0 && s.Date == ""
}

func (s Scope) Validate() error {
	if s.BranchID < 0 {
		return fmt.Errorf("branch id must not be negative, got %d", s.BranchID)
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD, got %q", s.Date)
	}
	return nil
}

// MatchesBranch treats a zero branch on either side as a wildcard.
func (s Scope) MatchesBranch(branchID int64) bool {
	return s.BranchID == 0 || branchID == 0 || s.BranchID == branchID
}
