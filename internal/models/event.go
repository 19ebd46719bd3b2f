package models

import "time"

// Event is a scheduled school event owned by one teacher.
type Event struct {
	ID        string    `db:"event_id" json:"event_id"`
	Name      string    `db:"event_name" json:"event_name"`
	Date      time.Time `db:"event_date" json:"event_date"`
	StartTime string    `db:"event_start_time" json:"event_start_time"`
	EndTime   string    `db:"event_end_time" json:"event_end_time"`
	Venue     string    `db:"event_venue" json:"event_venue"`
	TeacherID string    `db:"user_id" json:"user_id"`
}

// EventConflict describes another assignment of an actor inside the blackout window.
type EventConflict struct {
	EventID string    `db:"event_id" json:"event_id"`
	Date    time.Time `db:"event_date" json:"event_date"`
	UserID  string    `db:"user_id" json:"user_id"`
}

// DateWindow is an inclusive calendar date range.
type DateWindow struct {
	From time.Time
	To   time.Time
}
