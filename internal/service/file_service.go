package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

// DefaultMaxUploadBytes bounds a single submission.
const DefaultMaxUploadBytes int64 = 10 << 20

type fileRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, file *models.EventFile) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EventFile, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.FileApprovalStatus) error
	ListByEventAndUser(ctx context.Context, eventID, userID string) ([]models.EventFile, error)
}

type feedbackRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, fb *models.Feedback) error
	ListByEventAndUser(ctx context.Context, eventID, userID string) ([]models.FeedbackView, error)
}

type participationChecker interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) (bool, error)
}

type fileIDAllocator interface {
	NextFileID(ctx context.Context, exec sqlx.ExtContext) (string, error)
	NextFeedbackID(ctx context.Context, exec sqlx.ExtContext) (string, error)
}

type byteStore interface {
	ReadBytes(path string) ([]byte, error)
	WriteBytes(path string, data []byte) (string, error)
}

// FileService handles PDF submissions and their review.
type FileService struct {
	tx             txProvider
	files          fileRepository
	feedback       feedbackRepository
	events         eventFinder
	users          userFinder
	participations participationChecker
	ids            fileIDAllocator
	storage        byteStore
	maxUploadBytes int64
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewFileService constructs the file review service.
func NewFileService(
	tx txProvider,
	files fileRepository,
	feedback feedbackRepository,
	events eventFinder,
	users userFinder,
	participations participationChecker,
	ids fileIDAllocator,
	storage byteStore,
	maxUploadBytes int64,
	validate *validator.Validate,
	logger *zap.Logger,
) *FileService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		tx:             tx,
		files:          files,
		feedback:       feedback,
		events:         events,
		users:          users,
		participations: participations,
		ids:            ids,
		storage:        storage,
		maxUploadBytes: maxUploadBytes,
		validator:      validate,
		logger:         logger,
	}
}

// StoredFileName builds the persisted name of an upload.
func StoredFileName(userID, eventID, original string) string {
	return fmt.Sprintf("%s_%s_%s", userID, eventID, filepath.Base(original))
}

func isPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// Upload stores a PDF submission for an event the user participates in or owns. New files start Pending.
func (s *FileService) Upload(ctx context.Context, req dto.UploadFileRequest) (file *models.EventFile, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid upload payload")
	}
	base := filepath.Base(strings.TrimSpace(req.FileName))
	if !isPDFName(base) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only .pdf files can be uploaded")
	}
	if len(req.Content) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if int64(len(req.Content)) > s.maxUploadBytes {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "file exceeds upload limit"),
			map[string]interface{}{"max_bytes": s.maxUploadBytes},
		)
	}

	tx, err := s.tx.BeginTxx(ctx, serializableTx)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			rollbackTx(tx, s.logger)
		}
	}()

	event, err := s.events.FindByID(ctx, tx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to load event")
	}
	if event.TeacherID != req.UserID {
		participates, perr := s.participations.Exists(ctx, tx, event.ID, req.UserID)
		if perr != nil {
			return nil, classify(perr, "failed to check participation")
		}
		if !participates {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "user is not assigned to this event")
		}
	}

	file = &models.EventFile{
		EventID: event.ID,
		UserID:  req.UserID,
		Name:    StoredFileName(req.UserID, event.ID, base),
		Content: req.Content,
		Status:  models.FileStatusPending,
	}
	if file.ID, err = s.ids.NextFileID(ctx, tx); err != nil {
		return nil, err
	}
	if err = s.files.Create(ctx, tx, file); err != nil {
		return nil, classify(err, "failed to store file")
	}
	if err = tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit file upload")
	}

	s.logger.Info("file uploaded", zap.String("file_id", file.ID), zap.String("event_id", file.EventID), zap.String("user_id", file.UserID), zap.Int("bytes", len(file.Content)))
	return file, nil
}

// UploadFromPath reads a local PDF and uploads it.
func (s *FileService) UploadFromPath(ctx context.Context, eventID, userID, path string) (*models.EventFile, error) {
	if !isPDFName(path) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only .pdf files can be uploaded")
	}
	content, err := s.storage.ReadBytes(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "failed to read file")
	}
	return s.Upload(ctx, dto.UploadFileRequest{EventID: eventID, UserID: userID, FileName: path, Content: content})
}

// Review sets a file to Approved or Declined and records the reviewer's feedback in the same transaction.
func (s *FileService) Review(ctx context.Context, req dto.ReviewFileRequest) (result *models.Feedback, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	status := models.FileApprovalStatus(req.Status)
	if !status.Reviewed() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be Approved or Declined")
	}

	tx, err := s.tx.BeginTxx(ctx, serializableTx)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			rollbackTx(tx, s.logger)
		}
	}()

	file, err := s.files.FindByID(ctx, tx, req.FileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, classify(err, "failed to load file")
	}
	if err = s.ensureReviewer(ctx, tx, file.EventID, req.ReviewerID); err != nil {
		return nil, err
	}

	if err = s.files.UpdateStatus(ctx, tx, file.ID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, classify(err, "failed to update file status")
	}
	result = &models.Feedback{FileID: file.ID, UserID: req.ReviewerID, Text: strings.TrimSpace(req.Feedback)}
	if result.ID, err = s.ids.NextFeedbackID(ctx, tx); err != nil {
		return nil, err
	}
	if err = s.feedback.Create(ctx, tx, result); err != nil {
		return nil, classify(err, "failed to store feedback")
	}
	if err = tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit review")
	}

	s.logger.Info("file reviewed", zap.String("file_id", file.ID), zap.String("status", string(status)), zap.String("user_id", req.ReviewerID))
	return result, nil
}

// GetContent returns a stored file including its bytes.
func (s *FileService) GetContent(ctx context.Context, fileID string) (*models.EventFile, error) {
	file, err := s.files.FindByID(ctx, nil, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, classify(err, "failed to load file")
	}
	return file, nil
}

// Download writes the stored bytes to destPath and returns the written location.
// A destPath naming a directory (trailing separator or empty) receives the stored file name.
func (s *FileService) Download(ctx context.Context, fileID, destPath string) (string, error) {
	file, err := s.GetContent(ctx, fileID)
	if err != nil {
		return "", err
	}
	if destPath == "" || strings.HasSuffix(destPath, string(filepath.Separator)) {
		destPath = filepath.Join(destPath, file.Name)
	}
	written, err := s.storage.WriteBytes(destPath, file.Content)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write file")
	}
	s.logger.Info("file downloaded", zap.String("file_id", file.ID), zap.String("path", written))
	return written, nil
}

// ListFiles returns the user's submissions for an event.
func (s *FileService) ListFiles(ctx context.Context, eventID, userID string) ([]models.EventFile, error) {
	files, err := s.files.ListByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, classify(err, "failed to list files")
	}
	return files, nil
}

// ListFeedback returns reviewer feedback on the user's submissions for an event.
func (s *FileService) ListFeedback(ctx context.Context, eventID, userID string) ([]models.FeedbackView, error) {
	items, err := s.feedback.ListByEventAndUser(ctx, eventID, userID)
	if err != nil {
		return nil, classify(err, "failed to list feedback")
	}
	return items, nil
}

func (s *FileService) ensureReviewer(ctx context.Context, exec sqlx.ExtContext, eventID, reviewerID string) error {
	reviewer, err := s.users.FindByID(ctx, exec, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "reviewer not found")
		}
		return classify(err, "failed to load reviewer")
	}
	if reviewer.Role == models.RoleAdmin {
		return nil
	}
	event, err := s.events.FindByID(ctx, exec, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return classify(err, "failed to load event")
	}
	if reviewer.Role != models.RoleTeacher || event.TeacherID != reviewer.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the event teacher can review its files")
	}
	return nil
}
