package models

// FileApprovalStatus tracks teacher review of an uploaded submission.
type FileApprovalStatus string

const (
	FileStatusPending  FileApprovalStatus = "Pending"
	FileStatusApproved FileApprovalStatus = "Approved"
	FileStatusDeclined FileApprovalStatus = "Declined"
)

// Reviewed reports whether the status is a final review outcome.
func (s FileApprovalStatus) Reviewed() bool {
	return s == FileStatusApproved || s == FileStatusDeclined
}

// EventFile is a PDF submission attached to an event.
type EventFile struct {
	ID      string             `db:"file_id" json:"file_id"`
	EventID string             `db:"event_id" json:"event_id"`
	UserID  string             `db:"user_id" json:"user_id"`
	Name    string             `db:"file_name" json:"file_name"`
	Content []byte             `db:"file_content" json:"-"`
	Status  FileApprovalStatus `db:"file_approval_status" json:"file_approval_status"`
}

// Feedback is a reviewer's comment on a file, created alongside its status update.
type Feedback struct {
	ID     string `db:"feedback_id" json:"feedback_id"`
	FileID string `db:"file_id" json:"file_id"`
	UserID string `db:"user_id" json:"user_id"`
	Text   string `db:"feedback" json:"feedback"`
}

// FeedbackView is feedback joined with the reviewed file for the student view.
type FeedbackView struct {
	FeedbackID string             `db:"feedback_id" json:"feedback_id"`
	FileID     string             `db:"file_id" json:"file_id"`
	FileName   string             `db:"file_name" json:"file_name"`
	Status     FileApprovalStatus `db:"file_approval_status" json:"file_approval_status"`
	ReviewerID string             `db:"reviewer_id" json:"reviewer_id"`
	Text       string             `db:"feedback" json:"feedback"`
}
