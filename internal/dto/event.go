package dto

// CreateEventRequest schedules a new event for a teacher.
type CreateEventRequest struct {
	Name      string `json:"eventName" validate:"required,notblank,max=255"`
	Date      string `json:"eventDate" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
	Venue     string `json:"venue" validate:"required,notblank,max=255"`
	TeacherID string `json:"teacherId" validate:"required,notblank"`
}

// UpdateEventRequest replaces the mutable fields of an event.
type UpdateEventRequest struct {
	Name      string `json:"eventName" validate:"required,notblank,max=255"`
	Date      string `json:"eventDate" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string `json:"endTime" validate:"required,datetime=15:04"`
	Venue     string `json:"venue" validate:"required,notblank,max=255"`
}

// ExportFormat selects the roster output encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// RosterExport is a rendered roster ready to be streamed.
type RosterExport struct {
	FileName    string
	ContentType string
	Content     []byte
}
