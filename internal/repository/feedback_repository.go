package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-events-api/internal/models"
)

// FeedbackRepository persists review comments.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// MaxID returns the highest stored feedback id, or "" when there are none.
func (r *FeedbackRepository) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return maxID(ctx, target(r.db, exec), "feedback", "feedback_id")
}

// Create inserts a feedback row.
func (r *FeedbackRepository) Create(ctx context.Context, exec sqlx.ExtContext, fb *models.Feedback) error {
	const query = `INSERT INTO feedback (feedback_id, file_id, user_id, feedback) VALUES (:feedback_id, :file_id, :user_id, :feedback)`
	if _, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, fb); err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}

// DeleteByEvent removes feedback attached to any file of the event.
func (r *FeedbackRepository) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error) {
	const query = `DELETE FROM feedback WHERE file_id IN (SELECT ef.file_id FROM event_files ef WHERE ef.event_id = $1)`
	result, err := target(r.db, exec).ExecContext(ctx, query, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete event feedback: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("event feedback rows affected: %w", err)
	}
	return affected, nil
}

// ListByEventAndUser returns feedback on files the user uploaded for the event.
func (r *FeedbackRepository) ListByEventAndUser(ctx context.Context, eventID, userID string) ([]models.FeedbackView, error) {
	const query = `
SELECT f.feedback_id, f.file_id, ef.file_name, ef.file_approval_status, f.user_id AS reviewer_id, f.feedback
FROM feedback f
JOIN event_files ef ON ef.file_id = f.file_id
WHERE ef.event_id = $1 AND ef.user_id = $2
ORDER BY f.feedback_id ASC`
	var items []models.FeedbackView
	if err := r.db.SelectContext(ctx, &items, query, eventID, userID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return items, nil
}
