package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-events-api/internal/models"
)

// AvailabilityRepository answers blackout-window queries across owned and participated events.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ConflictsForActor lists events other than excludeEventID that the actor owns or participates in
// whose date falls inside the window.
func (r *AvailabilityRepository) ConflictsForActor(ctx context.Context, exec sqlx.ExtContext, actorID string, window models.DateWindow, excludeEventID string) ([]models.EventConflict, error) {
	const query = `
SELECT e.event_id, e.event_date, e.user_id
FROM events e
WHERE e.user_id = $1 AND e.event_date BETWEEN $2::date AND $3::date AND e.event_id <> $4
UNION
SELECT e.event_id, e.event_date, ep.user_id
FROM events e
JOIN event_participation ep ON ep.event_id = e.event_id
WHERE ep.user_id = $1 AND e.event_date BETWEEN $2::date AND $3::date AND e.event_id <> $4
ORDER BY event_date ASC, event_id ASC`
	var conflicts []models.EventConflict
	if err := sqlx.SelectContext(ctx, target(r.db, exec), &conflicts, query,
		actorID, formatDate(window.From), formatDate(window.To), excludeEventID,
	); err != nil {
		return nil, fmt.Errorf("list actor conflicts: %w", err)
	}
	return conflicts, nil
}

// AvailableTeachers lists teachers owning no event inside the window.
func (r *AvailabilityRepository) AvailableTeachers(ctx context.Context, window models.DateWindow) ([]models.UserSummary, error) {
	const query = `
SELECT u.user_id, u.user_name
FROM teachers t
JOIN users u ON u.user_id = t.user_id
WHERE t.user_id NOT IN (
    SELECT e.user_id FROM events e WHERE e.event_date BETWEEN $1::date AND $2::date
)
ORDER BY u.user_id ASC`
	var teachers []models.UserSummary
	if err := r.db.SelectContext(ctx, &teachers, query, formatDate(window.From), formatDate(window.To)); err != nil {
		return nil, fmt.Errorf("list available teachers: %w", err)
	}
	return teachers, nil
}

// UnassignedStudents lists students without any participation.
func (r *AvailabilityRepository) UnassignedStudents(ctx context.Context) ([]models.UserSummary, error) {
	const query = `
SELECT u.user_id, u.user_name
FROM students s
JOIN users u ON u.user_id = s.user_id
WHERE s.user_id NOT IN (SELECT ep.user_id FROM event_participation ep)
ORDER BY u.user_id ASC`
	var students []models.UserSummary
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list unassigned students: %w", err)
	}
	return students, nil
}

// NonConflictingStudents lists students with no participation inside the window, ignoring
// eventID itself, and not already assigned to eventID.
func (r *AvailabilityRepository) NonConflictingStudents(ctx context.Context, window models.DateWindow, eventID string) ([]models.UserSummary, error) {
	const query = `
SELECT u.user_id, u.user_name
FROM students s
JOIN users u ON u.user_id = s.user_id
WHERE s.user_id NOT IN (
    SELECT ep.user_id
    FROM event_participation ep
    JOIN events e ON e.event_id = ep.event_id
    WHERE e.event_date BETWEEN $1::date AND $2::date AND e.event_id <> $3
)
AND s.user_id NOT IN (SELECT ep.user_id FROM event_participation ep WHERE ep.event_id = $3)
ORDER BY u.user_id ASC`
	var students []models.UserSummary
	if err := r.db.SelectContext(ctx, &students, query, formatDate(window.From), formatDate(window.To), eventID); err != nil {
		return nil, fmt.Errorf("list non-conflicting students: %w", err)
	}
	return students, nil
}
