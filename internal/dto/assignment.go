package dto

// AssignRequest attaches a teacher or student to an event.
type AssignRequest struct {
	EventID        string `json:"-" validate:"required"`
	UserID         string `json:"userId" validate:"required"`
	Responsibility string `json:"responsibility" validate:"max=255"`
}
