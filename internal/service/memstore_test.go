package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-events-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func day(value string) time.Time {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		panic(err)
	}
	return d
}

// memStore is an in-memory database shared by the repository stubs below.
type memStore struct {
	users          map[string]*models.User
	events         map[string]*models.Event
	participations []models.Participation
	files          map[string]*models.EventFile
	feedback       map[string]*models.Feedback
	err            error
	// failOn injects an error for a single repository call, keyed "<repo>.<method>".
	failOn map[string]error
}

func (m *memStore) failure(op string) error {
	return m.failOn[op]
}

func newMemStore() *memStore {
	return &memStore{
		users: map[string]*models.User{
			"ADMIN01": {ID: "ADMIN01", Name: "admin", Role: models.RoleAdmin, Password: "admin"},
			"T1":      {ID: "T1", Name: "jdoe", Role: models.RoleTeacher, Password: "pw"},
			"T2":      {ID: "T2", Name: "bsmith", Role: models.RoleTeacher, Password: "pw"},
			"S1":      {ID: "S1", Name: "alice", Role: models.RoleStudent, Password: "pw"},
			"S2":      {ID: "S2", Name: "bob", Role: models.RoleStudent, Password: "pw"},
		},
		events:   map[string]*models.Event{},
		files:    map[string]*models.EventFile{},
		feedback: map[string]*models.Feedback{},
	}
}

func (m *memStore) addEvent(id, teacherID, date string) {
	m.events[id] = &models.Event{ID: id, Name: "Event " + id, Date: day(date), StartTime: "09:00", EndTime: "10:00", Venue: "Hall", TeacherID: teacherID}
}

func (m *memStore) addParticipation(eventID, userID string) {
	m.participations = append(m.participations, models.Participation{EventID: eventID, UserID: userID})
}

func maxKey[T any](items map[string]T) string {
	best := ""
	for id := range items {
		if len(id) > len(best) || (len(id) == len(best) && id > best) {
			best = id
		}
	}
	return best
}

type memEvents struct{ *memStore }

func (m memEvents) List(ctx context.Context) ([]models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Event, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memEvents) ListByTeacher(ctx context.Context, teacherID string) ([]models.Event, error) {
	all, _ := m.List(ctx)
	out := []models.Event{}
	for _, e := range all {
		if e.TeacherID == teacherID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m memEvents) ListByStudent(ctx context.Context, studentID string) ([]models.Event, error) {
	out := []models.Event{}
	for _, p := range m.participations {
		if p.UserID == studentID {
			out = append(out, *m.events[p.EventID])
		}
	}
	return out, nil
}

func (m memEvents) ListByDate(ctx context.Context, date time.Time) ([]models.Event, error) {
	all, _ := m.List(ctx)
	out := []models.Event{}
	for _, e := range all {
		if e.Date.Equal(date) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m memEvents) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.events[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m memEvents) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Event, error) {
	return m.FindByID(ctx, exec, id)
}

func (m memEvents) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return maxKey(m.events), nil
}

func (m memEvents) Create(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error {
	cp := *event
	m.events[event.ID] = &cp
	return nil
}

func (m memEvents) Update(ctx context.Context, exec sqlx.ExtContext, event *models.Event) error {
	existing, ok := m.events[event.ID]
	if !ok {
		return sql.ErrNoRows
	}
	cp := *event
	cp.TeacherID = existing.TeacherID
	m.events[event.ID] = &cp
	return nil
}

func (m memEvents) UpdateTeacher(ctx context.Context, exec sqlx.ExtContext, eventID, teacherID string) error {
	e, ok := m.events[eventID]
	if !ok {
		return sql.ErrNoRows
	}
	e.TeacherID = teacherID
	return nil
}

func (m memEvents) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if err := m.failure("events.Delete"); err != nil {
		return err
	}
	if _, ok := m.events[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.events, id)
	return nil
}

type memUsers struct{ *memStore }

func (m memUsers) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) FindByCredentials(ctx context.Context, name, password string, role models.UserRole) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Name == name && u.Password == password && u.Role == role {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

type memParticipations struct{ *memStore }

func (m memParticipations) Exists(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) (bool, error) {
	for _, p := range m.participations {
		if p.EventID == eventID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m memParticipations) HasAny(ctx context.Context, exec sqlx.ExtContext, userID string) (bool, error) {
	for _, p := range m.participations {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m memParticipations) Create(ctx context.Context, exec sqlx.ExtContext, p *models.Participation) error {
	m.memStore.participations = append(m.memStore.participations, *p)
	return nil
}

func (m memParticipations) Delete(ctx context.Context, exec sqlx.ExtContext, eventID, userID string) error {
	for i, p := range m.participations {
		if p.EventID == eventID && p.UserID == userID {
			m.memStore.participations = append(m.participations[:i], m.participations[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m memParticipations) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error) {
	if err := m.failure("participations.DeleteByEvent"); err != nil {
		return 0, err
	}
	kept := m.participations[:0]
	var removed int64
	for _, p := range m.participations {
		if p.EventID == eventID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	m.memStore.participations = kept
	return removed, nil
}

func (m memParticipations) ListByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) ([]models.ParticipantDetail, error) {
	out := []models.ParticipantDetail{}
	for _, p := range m.participations {
		if p.EventID == eventID {
			out = append(out, models.ParticipantDetail{Participation: p, UserName: m.users[p.UserID].Name})
		}
	}
	return out, nil
}

type memAvailability struct{ *memStore }

func inWindow(d time.Time, w models.DateWindow) bool {
	return !d.Before(w.From) && !d.After(w.To)
}

func (m memAvailability) ConflictsForActor(ctx context.Context, exec sqlx.ExtContext, actorID string, window models.DateWindow, excludeEventID string) ([]models.EventConflict, error) {
	if m.err != nil {
		return nil, m.err
	}
	seen := map[string]bool{}
	out := []models.EventConflict{}
	add := func(e *models.Event) {
		if e.ID == excludeEventID || seen[e.ID] || !inWindow(e.Date, window) {
			return
		}
		seen[e.ID] = true
		out = append(out, models.EventConflict{EventID: e.ID, Date: e.Date, UserID: actorID})
	}
	for _, e := range m.events {
		if e.TeacherID == actorID {
			add(e)
		}
	}
	for _, p := range m.participations {
		if p.UserID == actorID {
			add(m.events[p.EventID])
		}
	}
	return out, nil
}

func (m memAvailability) AvailableTeachers(ctx context.Context, window models.DateWindow) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	for _, u := range m.users {
		if u.Role != models.RoleTeacher {
			continue
		}
		busy := false
		for _, e := range m.events {
			if e.TeacherID == u.ID && inWindow(e.Date, window) {
				busy = true
			}
		}
		if !busy {
			out = append(out, models.UserSummary{ID: u.ID, Name: u.Name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memAvailability) UnassignedStudents(ctx context.Context) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	for _, u := range m.users {
		if u.Role != models.RoleStudent {
			continue
		}
		if ok, _ := (memParticipations{m.memStore}).HasAny(ctx, nil, u.ID); !ok {
			out = append(out, models.UserSummary{ID: u.ID, Name: u.Name})
		}
	}
	return out, nil
}

func (m memAvailability) NonConflictingStudents(ctx context.Context, window models.DateWindow, eventID string) ([]models.UserSummary, error) {
	out := []models.UserSummary{}
	for _, u := range m.users {
		if u.Role != models.RoleStudent {
			continue
		}
		if on, _ := (memParticipations{m.memStore}).Exists(ctx, nil, eventID, u.ID); on {
			continue
		}
		conflicts, _ := m.ConflictsForActor(ctx, nil, u.ID, window, eventID)
		if len(conflicts) == 0 {
			out = append(out, models.UserSummary{ID: u.ID, Name: u.Name})
		}
	}
	return out, nil
}

type memFiles struct{ *memStore }

func (m memFiles) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return maxKey(m.files), nil
}

func (m memFiles) Create(ctx context.Context, exec sqlx.ExtContext, file *models.EventFile) error {
	cp := *file
	m.files[file.ID] = &cp
	return nil
}

func (m memFiles) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.EventFile, error) {
	f, ok := m.files[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *f
	return &cp, nil
}

func (m memFiles) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.FileApprovalStatus) error {
	f, ok := m.files[id]
	if !ok {
		return sql.ErrNoRows
	}
	f.Status = status
	return nil
}

func (m memFiles) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error) {
	if err := m.failure("files.DeleteByEvent"); err != nil {
		return 0, err
	}
	var removed int64
	for id, f := range m.files {
		if f.EventID == eventID {
			delete(m.files, id)
			removed++
		}
	}
	return removed, nil
}

func (m memFiles) ListByEventAndUser(ctx context.Context, eventID, userID string) ([]models.EventFile, error) {
	out := []models.EventFile{}
	for _, f := range m.files {
		if f.EventID == eventID && f.UserID == userID {
			out = append(out, *f)
		}
	}
	return out, nil
}

type memFeedback struct{ *memStore }

func (m memFeedback) MaxID(ctx context.Context, exec sqlx.ExtContext) (string, error) {
	return maxKey(m.feedback), nil
}

func (m memFeedback) Create(ctx context.Context, exec sqlx.ExtContext, fb *models.Feedback) error {
	cp := *fb
	m.feedback[fb.ID] = &cp
	return nil
}

func (m memFeedback) DeleteByEvent(ctx context.Context, exec sqlx.ExtContext, eventID string) (int64, error) {
	if err := m.failure("feedback.DeleteByEvent"); err != nil {
		return 0, err
	}
	var removed int64
	for id, fb := range m.feedback {
		if f, ok := m.files[fb.FileID]; ok && f.EventID == eventID {
			delete(m.feedback, id)
			removed++
		}
	}
	return removed, nil
}

func (m memFeedback) ListByEventAndUser(ctx context.Context, eventID, userID string) ([]models.FeedbackView, error) {
	out := []models.FeedbackView{}
	for _, fb := range m.feedback {
		f, ok := m.files[fb.FileID]
		if !ok || f.EventID != eventID || f.UserID != userID {
			continue
		}
		out = append(out, models.FeedbackView{FeedbackID: fb.ID, FileID: f.ID, FileName: f.Name, Status: f.Status, ReviewerID: fb.UserID, Text: fb.Text})
	}
	return out, nil
}

func newAllocator(store *memStore) *IDAllocator {
	return NewIDAllocator(memEvents{store}, memFiles{store}, memFeedback{store})
}

func newAvailability(store *memStore) *AvailabilityService {
	return NewAvailabilityService(memAvailability{store}, memEvents{store}, DefaultBlackoutDays, nil)
}
