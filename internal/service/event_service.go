package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

type eventRepository interface {
	List(ctx context.Context) ([]models.Event, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Event, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Event, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.Event, error)
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error)
	Create(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error
	Update(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type userFinder interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error)
}

type participantStore interface {
	ListByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) ([]models.ParticipantDetail, error)
	DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error)
}

type eventScopedDeleter interface {
	DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error)
}

type availabilityChecker interface {
	Conflicts(ctx context.Context, exec sqlx.ExtContext, actorID string, date time.Time, excludingEventID string) ([]models.EventConflict, error)
}

type eventIDAllocator interface {
	NextEventID(ctx context.Context, exec sqlx.ExtContext) (string, error)
}

// EventService creates, edits and deletes events while keeping every actor outside each other's blackout windows.
type EventService struct {
	tx           txProvider
	events       eventRepository
	users        userFinder
	participants participantStore
	files        eventScopedDeleter
	feedback     eventScopedDeleter
	availability availabilityChecker
	ids          eventIDAllocator
	validator    *validator.Validate
	logger       *zap.Logger
	metrics      schedulingMetrics
}

// NewEventService constructs the event mutation service.
func NewEventService(
	tx txProvider,
	events eventRepository,
	users userFinder,
	participants participantStore,
	files eventScopedDeleter,
	feedback eventScopedDeleter,
	availability availabilityChecker,
	ids eventIDAllocator,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics schedulingMetrics,
) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	_ = validate.RegisterValidation("notblank", validators.NotBlank)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{
		tx:           tx,
		events:       events,
		users:        users,
		participants: participants,
		files:        files,
		feedback:     feedback,
		availability: availability,
		ids:          ids,
		validator:    validate,
		logger:       logger,
		metrics:      metricsOrNoop(metrics),
	}
}

// List returns every event.
func (s *EventService) List(ctx context.Context) ([]models.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, classify(err, "failed to list events")
	}
	return events, nil
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to load event")
	}
	return event, nil
}

// ListByTeacher returns events owned by a teacher.
func (s *EventService) ListByTeacher(ctx context.Context, teacherID string) ([]models.Event, error) {
	events, err := s.events.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, classify(err, "failed to list teacher events")
	}
	return events, nil
}

// ListByStudent returns events a student is assigned to.
func (s *EventService) ListByStudent(ctx context.Context, studentID string) ([]models.Event, error) {
	events, err := s.events.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, classify(err, "failed to list student events")
	}
	return events, nil
}

// ListByDate returns events held on a calendar date.
func (s *EventService) ListByDate(ctx context.Context, date string) ([]models.Event, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}
	events, err := s.events.ListByDate(ctx, day)
	if err != nil {
		return nil, classify(err, "failed to list events by date")
	}
	return events, nil
}

// Create books a new event for a teacher who is free for the whole blackout window around the date.
func (s *EventService) Create(ctx context.Context, req dto.CreateEventRequest) (event *models.Event, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event, err = buildEvent(req.Name, req.Date, req.StartTime, req.EndTime, req.Venue)
	if err != nil {
		return nil, err
	}
	event.TeacherID = strings.TrimSpace(req.TeacherID)

	started := time.Now()
	tx, err := s.tx.BeginTxx(ctx, serializableTx)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			rollbackTx(tx, s.logger)
		}
	}()

	if err = s.ensureRole(ctx, tx, event.TeacherID, models.RoleTeacher); err != nil {
		return nil, err
	}

	conflicts, err := s.availability.Conflicts(ctx, tx, event.TeacherID, event.Date, "")
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		s.metrics.RecordConflict("event_create")
		s.logger.Info("event creation rejected", zap.String("user_id", event.TeacherID), zap.Time("date", event.Date), zap.Int("conflicts", len(conflicts)))
		return nil, conflictError(event.TeacherID, event.Date, conflicts)
	}

	if event.ID, err = s.ids.NextEventID(ctx, tx); err != nil {
		return nil, err
	}
	if err = s.events.Create(ctx, tx, event); err != nil {
		return nil, classify(err, "failed to create event")
	}
	if err = tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit event")
	}

	s.metrics.ObserveDBQuery("event_create", time.Since(started))
	s.metrics.RecordMutation("event_create")
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("user_id", event.TeacherID))
	return event, nil
}

// Edit replaces the mutable fields of an event. The owning teacher and every assigned student must stay
// free around the new date, ignoring the event being edited.
func (s *EventService) Edit(ctx context.Context, id string, req dto.UpdateEventRequest) (event *models.Event, err error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	updated, err := buildEvent(req.Name, req.Date, req.StartTime, req.EndTime, req.Venue)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	tx, err := s.tx.BeginTxx(ctx, serializableTx)
	if err != nil {
		return nil, classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			rollbackTx(tx, s.logger)
		}
	}()

	existing, err := s.events.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to load event")
	}
	updated.ID = existing.ID
	updated.TeacherID = existing.TeacherID

	participants, err := s.participants.ListByEvent(ctx, tx, existing.ID)
	if err != nil {
		return nil, classify(err, "failed to load event participants")
	}
	actors := make([]string, 0, len(participants)+1)
	actors = append(actors, existing.TeacherID)
	for _, p := range participants {
		actors = append(actors, p.UserID)
	}
	for _, actorID := range actors {
		conflicts, cerr := s.availability.Conflicts(ctx, tx, actorID, updated.Date, existing.ID)
		if cerr != nil {
			return nil, cerr
		}
		if len(conflicts) > 0 {
			s.metrics.RecordConflict("event_edit")
			s.logger.Info("event edit rejected", zap.String("event_id", existing.ID), zap.String("user_id", actorID))
			return nil, conflictError(actorID, updated.Date, conflicts)
		}
	}

	if err = s.events.Update(ctx, tx, updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to update event")
	}
	if err = tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit event update")
	}

	s.metrics.ObserveDBQuery("event_edit", time.Since(started))
	s.metrics.RecordMutation("event_edit")
	s.logger.Info("event updated", zap.String("event_id", updated.ID))
	return updated, nil
}

// Delete removes an event together with its feedback, participation and files.
func (s *EventService) Delete(ctx context.Context, id string) (err error) {
	tx, err := s.tx.BeginTxx(ctx, serializableTx)
	if err != nil {
		return classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			rollbackTx(tx, s.logger)
		}
	}()

	if _, err = s.events.FindByIDForUpdate(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return classify(err, "failed to load event")
	}

	feedbackRemoved, err := s.feedback.DeleteByEvent(ctx, tx, id)
	if err != nil {
		return classify(err, "failed to delete event feedback")
	}
	participantsRemoved, err := s.participants.DeleteByEvent(ctx, tx, id)
	if err != nil {
		return classify(err, "failed to delete event participation")
	}
	filesRemoved, err := s.files.DeleteByEvent(ctx, tx, id)
	if err != nil {
		return classify(err, "failed to delete event files")
	}
	if err = s.events.Delete(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return classify(err, "failed to delete event")
	}
	if err = tx.Commit(); err != nil {
		return classify(err, "failed to commit event deletion")
	}

	s.metrics.RecordMutation("event_delete")
	s.logger.Info("event deleted",
		zap.String("event_id", id),
		zap.Int64("feedback", feedbackRemoved),
		zap.Int64("participants", participantsRemoved),
		zap.Int64("files", filesRemoved),
	)
	return nil
}

func (s *EventService) ensureRole(ctx context.Context, exec sqlx.ExtContext, userID string, role models.UserRole) error {
	user, err := s.users.FindByID(ctx, exec, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return classify(err, "failed to load user")
	}
	if user.Role != role {
		return appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "user "+userID+" is not a "+strings.ToLower(string(role))),
			map[string]interface{}{"user_id": userID, "role": user.Role},
		)
	}
	return nil
}

func buildEvent(name, date, start, end, venue string) (*models.Event, error) {
	name, venue = strings.TrimSpace(name), strings.TrimSpace(venue)
	if name == "" {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "event name is required"), map[string]interface{}{"field": "eventName"})
	}
	if venue == "" {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "venue is required"), map[string]interface{}{"field": "venue"})
	}
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "event date must be YYYY-MM-DD")
	}
	startAt, err := time.Parse(clockLayout, strings.TrimSpace(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "start time must be HH:MM")
	}
	endAt, err := time.Parse(clockLayout, strings.TrimSpace(end))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "end time must be HH:MM")
	}
	if !startAt.Before(endAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start time must be before end time")
	}
	return &models.Event{
		Name:      name,
		Date:      CalendarDate(day),
		StartTime: startAt.Format(clockLayout),
		EndTime:   endAt.Format(clockLayout),
		Venue:     venue,
	}, nil
}
