package dto

// UploadFileRequest carries a PDF submission for an event.
type UploadFileRequest struct {
	EventID  string `validate:"required"`
	UserID   string `validate:"required"`
	FileName string `validate:"required"`
	Content  []byte
}

// ReviewFileRequest records a teacher decision on a submission.
type ReviewFileRequest struct {
	FileID     string `json:"-" validate:"required"`
	ReviewerID string `json:"-" validate:"required"`
	Status     string `json:"status" validate:"required,oneof=Approved Declined"`
	Feedback   string `json:"feedback" validate:"max=2000"`
}
