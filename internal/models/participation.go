package models

import "fmt"

// Participation assigns a student to an event with a responsibility label.
type Participation struct {
	EventID        string `db:"event_id" json:"event_id"`
	UserID         string `db:"user_id" json:"user_id"`
	Responsibility string `db:"responsibility" json:"responsibility"`
}

// ParticipantDetail joins participation with the student's name for rosters.
type ParticipantDetail struct {
	Participation
	UserName string `db:"user_name" json:"user_name"`
}

// Assignment is the result of attaching an actor to an event.
type Assignment struct {
	ID             string   `json:"id"`
	EventID        string   `json:"event_id"`
	UserID         string   `json:"user_id"`
	Role           UserRole `json:"role"`
	Responsibility string   `json:"responsibility,omitempty"`
}

// AssignmentID builds the identifier of an (event, actor) pair.
func AssignmentID(eventID, userID string) string {
	return fmt.Sprintf("%s:%s", eventID, userID)
}
