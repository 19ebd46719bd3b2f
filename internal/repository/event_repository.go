package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-events-api/internal/models"
)

const eventColumns = `e.event_id, e.event_name, e.event_date,
       to_char(e.event_start_time, 'HH24:MI') AS event_start_time,
       to_char(e.event_end_time, 'HH24:MI') AS event_end_time,
       e.event_venue, e.user_id`

// EventRepository persists events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns every event ordered by date.
func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e ORDER BY e.event_date ASC, e.event_id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListByTeacher returns events owned by the teacher.
func (r *EventRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.user_id = $1 ORDER BY e.event_date ASC, e.event_id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher events: %w", err)
	}
	return events, nil
}

// ListByStudent returns events the student participates in.
func (r *EventRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e
JOIN event_participation ep ON ep.event_id = e.event_id
WHERE ep.user_id = $1 ORDER BY e.event_date ASC, e.event_id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, studentID); err != nil {
		return nil, fmt.Errorf("list student events: %w", err)
	}
	return events, nil
}

// ListByDate returns events held on the given calendar date.
func (r *EventRepository) ListByDate(ctx context.Context, date time.Time) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.event_date = $1::date ORDER BY e.event_start_time ASC, e.event_id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, formatDate(date)); err != nil {
		return nil, fmt.Errorf("list events by date: %w", err)
	}
	return events, nil
}

// FindByID fetches an event.
func (r *EventRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.event_id = $1`
	var event models.Event
	if err := sqlx.GetContext(ctx, target(r.db, exec), &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindByIDForUpdate fetches an event and locks its row for the rest of the transaction.
func (r *EventRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.event_id = $1 FOR UPDATE`
	var event models.Event
	if err := sqlx.GetContext(ctx, target(r.db, exec), &event, query, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// MaxID returns the highest stored event id, or "" when there are none.
func (r *EventRepository) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return maxID(ctx, target(r.db, exec), "events", "event_id")
}

// Create inserts an event.
func (r *EventRepository) Create(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error {
	const query = `INSERT INTO events (event_id, event_name, event_date, event_start_time, event_end_time, event_venue, user_id)
VALUES ($1, $2, $3::date, $4::time, $5::time, $6, $7)`
	if _, err := target(r.db, exec).ExecContext(ctx, query,
		event.ID, event.Name, formatDate(event.Date), event.StartTime, event.EndTime, event.Venue, event.TeacherID,
	); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update overwrites every mutable field of an event.
func (r *EventRepository) Update(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error {
	const query = `UPDATE events SET event_name = $2, event_date = $3::date, event_start_time = $4::time,
event_end_time = $5::time, event_venue = $6 WHERE event_id = $1`
	result, err := target(r.db, exec).ExecContext(ctx, query,
		event.ID, event.Name, formatDate(event.Date), event.StartTime, event.EndTime, event.Venue,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return affectedOrNotFound(result, "update event")
}

// UpdateTeacher changes the owning teacher.
func (r *EventRepository) UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, eventID, teacherID string) error {
	const query = `UPDATE events SET user_id = $2 WHERE event_id = $1`
	result, err := target(r.db, exec).ExecContext(ctx, query, eventID, teacherID)
	if err != nil {
		return fmt.Errorf("update event teacher: %w", err)
	}
	return affectedOrNotFound(result, "update event teacher")
}

// Delete removes an event row.
func (r *EventRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	result, err := target(r.db, exec).ExecContext(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return affectedOrNotFound(result, "delete event")
}
