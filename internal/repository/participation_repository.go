package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-events-api/internal/models"
)

// ParticipationRepository persists student-event assignments.
type ParticipationRepository struct {
	db *sqlx.DB
}

// NewParticipationRepository constructs the repository.
func NewParticipationRepository(db *sqlx.DB) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

// Exists checks whether the student is already assigned to the event.
func (r *ParticipationRepository) Exists(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) (bool, error) {
	const query = `SELECT 1 FROM event_participation WHERE event_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, target(r.db, exec), &exists, query, eventID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check participation: %w", err)
	}
	return true, nil
}

// HasAny reports whether the student is assigned to any event.
func (r *ParticipationRepository) HasAny(ctx context.Context, exec sqlx.ExtContext, userID string) (bool, error) {
	const query = `SELECT 1 FROM event_participation WHERE user_id = $1 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, target(r.db, exec), &exists, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check any participation: %w", err)
	}
	return true, nil
}

// Create inserts a participation row.
func (r *ParticipationRepository) Create(ctx context.Context, exec sqlx.ExtContext, p *models.Participation) error {
	const query = `INSERT INTO event_participation (event_id, user_id, responsibility) VALUES (:event_id, :user_id, :responsibility)`
	if _, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, p); err != nil {
		return fmt.Errorf("create participation: %w", err)
	}
	return nil
}

// Delete removes one assignment.
func (r *ParticipationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) error {
	const query = `DELETE FROM event_participation WHERE event_id = $1 AND user_id = $2`
	result, err := target(r.db, exec).ExecContext(ctx, query, eventID, userID)
	if err != nil {
		return fmt.Errorf("delete participation: %w", err)
	}
	return affectedOrNotFound(result, "delete participation")
}

// DeleteByEvent removes every assignment of an event.
func (r *ParticipationRepository) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error) {
	result, err := target(r.db, exec).ExecContext(ctx, `DELETE FROM event_participation WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete event participation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("event participation rows affected: %w", err)
	}
	return affected, nil
}

// ListByEvent returns the event roster with student names.
func (r *ParticipationRepository) ListByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) ([]models.ParticipantDetail, error) {
	const query = `
SELECT ep.event_id, ep.user_id, ep.responsibility, u.user_name
FROM event_participation ep
JOIN users u ON u.user_id = ep.user_id
WHERE ep.event_id = $1
ORDER BY ep.user_id ASC`
	var participants []models.ParticipantDetail
	if err := sqlx.SelectContext(ctx, target(r.db, exec), &participants, query, eventID); err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	return participants, nil
}
