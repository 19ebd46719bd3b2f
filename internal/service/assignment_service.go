package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

type assignmentEventStore interface {
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error)
	UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, eventID, teacherID string) error
}

type participationStore interface {
	Exists(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) (bool, error)
	HasAny(ctx context.Context, exec sqlx.ExtContext, userID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, p *models.Participation) error
	Delete(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) error
}

// AssignmentService attaches teachers and students to events.
type AssignmentService struct {
	tx             txProvider
	events         assignmentEventStore
	users          userFinder
	participations participationStore
	availability   availabilityChecker
	validator      *validator.Validate
	logger         *zap.Logger
	metrics        schedulingMetrics
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(
	tx txProvider,
	events assignmentEventStore,
	users userFinder,
	participations participationStore,
	availability availabilityChecker,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics schedulingMetrics,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tx:             tx,
		events:         events,
		users:          users,
		participations: participations,
		availability:   availability,
		validator:      validate,
		logger:         logger,
		metrics:        metricsOrNoop(metrics),
	}
}

// Assign attaches the user to the event. Students get a participation row when they have never been
// assigned or are free around the event date; teachers become the event owner when free.
func (s *AssignmentService) Assign(ctx context.Context, req dto.AssignRequest) (assignment *models.Assignment, err error) {
	req.EventID = strings.TrimSpace(req.EventID)
	req.UserID = strings.TrimSpace(req.UserID)
	req.Responsibility = strings.TrimSpace(req.Responsibility)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
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

	event, err := s.events.FindByIDForUpdate(ctx, tx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to load event")
	}
	user, err := s.users.FindByID(ctx, tx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, classify(err, "failed to load user")
	}

	switch user.Role {
	case models.RoleStudent:
		err = s.assignStudent(ctx, tx, event, user.ID, req.Responsibility)
	case models.RoleTeacher:
		err = s.assignTeacher(ctx, tx, event, user.ID)
	default:
		err = appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "only teachers and students can be assigned to events"),
			map[string]interface{}{"user_id": user.ID, "role": user.Role},
		)
	}
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit assignment")
	}

	s.metrics.RecordMutation("assign_" + strings.ToLower(string(user.Role)))
	s.logger.Info("actor assigned", zap.String("event_id", event.ID), zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &models.Assignment{
		ID:             models.AssignmentID(event.ID, user.ID),
		EventID:        event.ID,
		UserID:         user.ID,
		Role:           user.Role,
		Responsibility: req.Responsibility,
	}, nil
}

// Unassign removes a student from an event.
func (s *AssignmentService) Unassign(ctx context.Context, eventID, userID string) error {
	if err := s.participations.Delete(ctx, nil, eventID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return classify(err, "failed to delete assignment")
	}
	s.metrics.RecordMutation("unassign_student")
	s.logger.Info("student unassigned", zap.String("event_id", eventID), zap.String("user_id", userID))
	return nil
}

func (s *AssignmentService) assignStudent(ctx context.Context, tx sqlx.ExtContext, event *models.Event, studentID, responsibility string) error {
	exists, err := s.participations.Exists(ctx, tx, event.ID, studentID)
	if err != nil {
		return classify(err, "failed to check assignment")
	}
	if exists {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrConflict, "student already assigned to this event"),
			map[string]interface{}{"event_id": event.ID, "user_id": studentID},
		)
	}

	assigned, err := s.participations.HasAny(ctx, tx, studentID)
	if err != nil {
		return classify(err, "failed to check student assignments")
	}
	if assigned {
		conflicts, err := s.availability.Conflicts(ctx, tx, studentID, event.Date, event.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			s.metrics.RecordConflict("assign_student")
			return conflictError(studentID, event.Date, conflicts)
		}
	}

	participation := &models.Participation{EventID: event.ID, UserID: studentID, Responsibility: responsibility}
	if err := s.participations.Create(ctx, tx, participation); err != nil {
		return classify(err, "failed to create assignment")
	}
	return nil
}

func (s *AssignmentService) assignTeacher(ctx context.Context, tx sqlx.ExtContext, event *models.Event, teacherID string) error {
	if event.TeacherID == teacherID {
		return nil
	}
	conflicts, err := s.availability.Conflicts(ctx, tx, teacherID, event.Date, event.ID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		s.metrics.RecordConflict("assign_teacher")
		return conflictError(teacherID, event.Date, conflicts)
	}
	if err := s.events.UpdateTeacher(ctx, tx, event.ID, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return classify(err, "failed to assign teacher")
	}
	return nil
}
