package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-events-api/internal/models"
)

// FileRepository persists uploaded event files.
type FileRepository struct {
	db *sqlx.DB
}

// NewFileRepository constructs the repository.
func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// MaxID returns the highest stored file id, or "" when there are none.
func (r *FileRepository) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return maxID(ctx, target(r.db, exec), "event_files", "file_id")
}

// Create inserts a file with its content.
func (r *FileRepository) Create(ctx context.Context, exec sqlx.ExtContext, file *models.EventFile) error {
	const query = `INSERT INTO event_files (file_id, event_id, user_id, file_name, file_content, file_approval_status)
VALUES (:file_id, :event_id, :user_id, :file_name, :file_content, :file_approval_status)`
	if _, err := sqlx.NamedExecContext(ctx, target(r.db, exec), query, file); err != nil {
		return fmt.Errorf("create event file: %w", err)
	}
	return nil
}

// FindByID loads a file including its content.
func (r *FileRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EventFile, error) {
	const query = `SELECT file_id, event_id, user_id, file_name, file_content, file_approval_status FROM event_files WHERE file_id = $1`
	var file models.EventFile
	if err := sqlx.GetContext(ctx, target(r.db, exec), &file, query, id); err != nil {
		return nil, err
	}
	return &file, nil
}

// UpdateStatus records a review outcome.
func (r *FileRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.FileApprovalStatus) error {
	const query = `UPDATE event_files SET file_approval_status = $2 WHERE file_id = $1`
	result, err := target(r.db, exec).ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	return affectedOrNotFound(result, "update file status")
}

// DeleteByEvent removes every file of an event.
func (r *FileRepository) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error) {
	result, err := target(r.db, exec).ExecContext(ctx, `DELETE FROM event_files WHERE event_id = $1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete event files: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("event files rows affected: %w", err)
	}
	return affected, nil
}

// ListByEventAndUser returns file metadata uploaded by a user for an event.
func (r *FileRepository) ListByEventAndUser(ctx context.Context, eventID, userID string) ([]models.EventFile, error) {
	const query = `SELECT file_id, event_id, user_id, file_name, file_approval_status
FROM event_files WHERE event_id = $1 AND user_id = $2 ORDER BY file_id ASC`
	var files []models.EventFile
	if err := r.db.SelectContext(ctx, &files, query, eventID, userID); err != nil {
		return nil, fmt.Errorf("list event files: %w", err)
	}
	return files, nil
}
