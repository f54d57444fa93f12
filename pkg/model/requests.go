package model

type ScopeRequest struct {
	BranchID int64  `json:"branchId" validate:"gte=0"`
	Date     string `json:"date" validate:"required,date_only"`
}

type ClickRequest struct {
	FieldID     int64       `json:"fieldId" validate:"required,gt=0"`
	FieldStatus FieldStatus `json:"fieldStatus" validate:"omitempty,oneof=available maintenance closed"`
	Hour        *int        `json:"hour" validate:"required,min=0,max=23"`
}

func (c ClickRequest) Field() Field {
	status := c.FieldStatus
	if status == "" {
		status = FieldStatusAvailable
	}
	return Field{ID: c.FieldID, Status: status}
}
