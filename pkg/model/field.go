package model

type FieldStatus string

const (
	FieldStatusAvailable   FieldStatus = "available"
	FieldStatusMaintenance FieldStatus = "maintenance"
	FieldStatusClosed      FieldStatus = "closed"
)

type Field struct {
	ID       int64       `json:"id" validate:"required,gt=0"`
	BranchID int64       `json:"branchId,omitempty" validate:"omitempty,gt=0"`
	Name     string      `json:"name,omitempty" validate:"omitempty,max=100"`
	Status   FieldStatus `json:"status" validate:"required,oneof=available maintenance closed"`
}

// Bookable reports whether new reservations may start on the field at all.
func (f Field) Bookable() bool {
	return f.Status == FieldStatusAvailable
}
