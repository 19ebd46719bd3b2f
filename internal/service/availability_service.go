package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

// DefaultBlackoutDays is the number of days on either side of an assignment during which the actor is busy.
const DefaultBlackoutDays = 3

type availabilityRepository interface {
	ConflictsForActor(ctx context.Context, exec sqlx.ExtContext, actorID string, window models.DateWindow, excludeEventID string) ([]models.EventConflict, error)
	AvailableTeachers(ctx context.Context, window models.DateWindow) ([]models.UserSummary, error)
	UnassignedStudents(ctx context.Context) ([]models.UserSummary, error)
	NonConflictingStudents(ctx context.Context, window models.DateWindow, eventID string) ([]models.UserSummary, error)
}

type eventFinder interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error)
}

type schedulingMetrics interface {
	RecordConflict(operation string)
	RecordMutation(operation string)
	ObserveDBQuery(label string, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordConflict(string)                {}
func (noopMetrics) RecordMutation(string)                {}
func (noopMetrics) ObserveDBQuery(string, time.Duration) {}

func metricsOrNoop(m schedulingMetrics) schedulingMetrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// AvailabilityService decides whether teachers and students are free around a date.
type AvailabilityService struct {
	repo         availabilityRepository
	events       eventFinder
	blackoutDays int
	logger       *zap.Logger
}

// NewAvailabilityService constructs the resolver. Negative blackout values fall back to the default.
func NewAvailabilityService(repo availabilityRepository, events eventFinder, blackoutDays int, logger *zap.Logger) *AvailabilityService {
	if blackoutDays < 0 {
		blackoutDays = DefaultBlackoutDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, events: events, blackoutDays: blackoutDays, logger: logger}
}

// CalendarDate drops the clock and location of t, keeping its calendar day at UTC midnight.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WithinBlackout reports whether two dates are at most days calendar days apart.
func WithinBlackout(a, b time.Time, days int) bool {
	diff := CalendarDate(a).Sub(CalendarDate(b))
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(days)*24*time.Hour
}

// Window returns the inclusive range of dates that collide with date.
func (s *AvailabilityService) Window(date time.Time) models.DateWindow {
	day := CalendarDate(date)
	return models.DateWindow{
		From: day.AddDate(0, 0, -s.blackoutDays),
		To:   day.AddDate(0, 0, s.blackoutDays),
	}
}

// Conflicts lists the actor's assignments colliding with date, ignoring excludingEventID when non-empty.
func (s *AvailabilityService) Conflicts(ctx context.Context, exec sqlx.ExtContext, actorID string, date time.Time, excludingEventID string) ([]models.EventConflict, error) {
	conflicts, err := s.repo.ConflictsForActor(ctx, exec, actorID, s.Window(date), excludingEventID)
	if err != nil {
		return nil, classify(err, "failed to check availability")
	}
	return conflicts, nil
}

// IsAvailable reports whether the actor has no assignment inside the blackout window of date.
func (s *AvailabilityService) IsAvailable(ctx context.Context, exec sqlx.ExtContext, actorID string, date time.Time, excludingEventID string) (bool, error) {
	conflicts, err := s.Conflicts(ctx, exec, actorID, date, excludingEventID)
	if err != nil {
		return false, err
	}
	return len(conflicts) == 0, nil
}

// AvailableTeachers lists teachers free to own an event on date.
func (s *AvailabilityService) AvailableTeachers(ctx context.Context, date time.Time) ([]models.UserSummary, error) {
	teachers, err := s.repo.AvailableTeachers(ctx, s.Window(date))
	if err != nil {
		return nil, classify(err, "failed to list available teachers")
	}
	return teachers, nil
}

// EligibleStudents lists students who can be assigned to the event: those with no assignment at all
// together with those whose assignments all fall outside the event's blackout window.
func (s *AvailabilityService) EligibleStudents(ctx context.Context, eventID string) ([]models.UserSummary, error) {
	event, err := s.events.FindByID(ctx, nil, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, classify(err, "failed to load event")
	}

	unassigned, err := s.repo.UnassignedStudents(ctx)
	if err != nil {
		return nil, classify(err, "failed to list unassigned students")
	}
	free, err := s.repo.NonConflictingStudents(ctx, s.Window(event.Date), event.ID)
	if err != nil {
		return nil, classify(err, "failed to list non-conflicting students")
	}

	seen := make(map[string]struct{}, len(unassigned)+len(free))
	students := make([]models.UserSummary, 0, len(unassigned)+len(free))
	for _, list := range [][]models.UserSummary{unassigned, free} {
		for _, student := range list {
			if _, ok := seen[student.ID]; ok {
				continue
			}
			seen[student.ID] = struct{}{}
			students = append(students, student)
		}
	}
	sort.Slice(students, func(i, j int) bool { return students[i].ID < students[j].ID })
	return students, nil
}

func conflictError(actorID string, date time.Time, conflicts []models.EventConflict) error {
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.EventID)
	}
	err := appErrors.Clone(appErrors.ErrConflict, "actor "+actorID+" is busy within the blackout window")
	return appErrors.WithDetails(err, map[string]interface{}{
		"user_id":         actorID,
		"date":            CalendarDate(date).Format("2006-01-02"),
		"conflicting_ids": ids,
	})
}
