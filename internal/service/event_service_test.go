package service

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-events-api/internal/dto"
	"github.com/noah-isme/sma-events-api/internal/models"
	appErrors "github.com/noah-isme/sma-events-api/pkg/errors"
)

type recordingMetrics struct {
	conflicts map[string]int
	mutations map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{conflicts: map[string]int{}, mutations: map[string]int{}}
}

func (m *recordingMetrics) RecordConflict(op string)             { m.conflicts[op]++ }
func (m *recordingMetrics) RecordMutation(op string)             { m.mutations[op]++ }
func (m *recordingMetrics) ObserveDBQuery(string, time.Duration) {}

func newEventService(t *testing.T, store *memStore, metrics schedulingMetrics) (*EventService, sqlmock.Sqlmock) {
	tx, mock := newTxProviderMock(t)
	svc := NewEventService(tx, memEvents{store}, memUsers{store}, memParticipations{store}, memFiles{store}, memFeedback{store}, newAvailability(store), newAllocator(store), nil, nil, metrics)
	return svc, mock
}

func createRequest(teacherID, date string) dto.CreateEventRequest {
	return dto.CreateEventRequest{
		Name:      "Science Fair",
		Date:      date,
		StartTime: "09:00",
		EndTime:   "12:30",
		Venue:     "Main Hall",
		TeacherID: teacherID,
	}
}

func TestEventServiceCreateSeedsFirstID(t *testing.T) {
	store := newMemStore()
	svc, mock := newEventService(t, store, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	event, err := svc.Create(context.Background(), createRequest("T1", "2025-03-20"))
	require.NoError(t, err)
	assert.Equal(t, "EID01", event.ID)
	assert.Equal(t, "T1", event.TeacherID)
	assert.Equal(t, day("2025-03-20"), event.Date)
	assert.Equal(t, "12:30", event.EndTime)
	assert.Contains(t, store.events, "EID01")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventServiceCreateBlackoutWindow(t *testing.T) {
	store := newMemStore()
	store.addEvent("EID01", "T1", "2025-03-20")
	metrics := newRecordingMetrics()
	svc, mock := newEventService(t, store, metrics)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Create(ctx, createRequest("T1", "2025-03-22"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
	assert.Equal(t, "T1", appErr.Details["user_id"])
	assert.Equal(t, "2025-03-22", appErr.Details["date"])
	assert.Equal(t, []string{"EID01"}, appErr.Details["conflicting_ids"])

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Create(ctx, createRequest("T1", "2025-03-23"))
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectCommit()
	event, err := svc.Create(ctx, createRequest("T1", "2025-03-24"))
	require.NoError(t, err)
	assert.Equal(t, "EID02", event.ID)

	assert.Len(t, store.events, 2)
	assert.Equal(t, 2, metrics.conflicts["event_create"])
	assert.Equal(t, 1, metrics.mutations["event_create"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventServiceCreateOtherTeacherSameDay(t *testing.T) {
	store := newMemStore()
	store.addEvent("EID01", "T1", "2025-03-20")
	svc, mock := newEventService(t, store, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()
	event, err := svc.Create(context.Background(), createRequest("T2", "2025-03-20"))
	require.NoError(t, err)
	assert.Equal(t, "EID02", event.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventServiceCreateValidation(t *testing.T) {
	store := newMemStore()
	svc, mock := newEventService(t, store, nil)

	cases := []struct {
		name   string
		mutate func(*dto.CreateEventRequest)
	}{
		{name: "missing name", mutate: func(r *dto.CreateEventRequest) { r.Name = "" }},
		{name: "blank name", mutate: func(r *dto.CreateEventRequest) { r.Name = "   " }},
		{name: "blank venue", mutate: func(r *dto.CreateEventRequest) { r.Venue = "  " }},
		{name: "blank teacher", mutate: func(r *dto.CreateEventRequest) { r.TeacherID = " " }},
		{name: "bad date", mutate: func(r *dto.CreateEventRequest) { r.Date = "20/03/2025" }},
		{name: "bad clock", mutate: func(r *dto.CreateEventRequest) { r.StartTime = "9am" }},
		{name: "start after end", mutate: func(r *dto.CreateEventRequest) { r.StartTime, r.EndTime = "13:00", "12:00" }},
		{name: "start equals end", mutate: func(r *dto.CreateEventRequest) { r.EndTime = r.StartTime }},
		{name: "missing teacher", mutate: func(r *dto.CreateEventRequest) { r.TeacherID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := createRequest("T1", "2025-03-20")
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
	assert.Empty(t, store.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildEventTrimsAndRejectsBlankFields(t *testing.T) {
	event, err := buildEvent("  Science Fair ", "2025-03-20", "09:00", "10:30", " Hall A ")
	require.NoError(t, err)
	assert.Equal(t, "Science Fair", event.Name)
	assert.Equal(t, "Hall A", event.Venue)

	_, err = buildEvent("   ", "2025-03-20", "09:00", "10:30", "Hall A")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "eventName", appErr.Details["field"])

	_, err = buildEvent("Fair", "2025-03-20", "09:00", "10:30", "  ")
	appErr = appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "venue", appErr.Details["field"])
}

func TestEventServiceCreateRejectsNonTeacher(t *testing.T) {
	store := newMemStore()
	svc, mock := newEventService(t, store, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Create(context.Background(), createRequest("S1", "2025-03-20"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err = svc.Create(context.Background(), createRequest("T9", "2025-03-20"))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	assert.Empty(t, store.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventServiceEdit(t *testing.T) {
	store := newMemStore()
	store.addEvent("EID01", "T1", "2025-03-20")
	store.addEvent("EID02", "T1", "2025-04-20")
	store.addEvent("EID03", "T2", "2025-05-20")
	store.addParticipation("EID03", "S1")
	store.addParticipation("EID02", "S1")
	svc, mock := newEventService(t, store, nil)
	ctx := context.Background()

	update := func(date string) dto.UpdateEventRequest {
		return dto.UpdateEventRequest{Name: "Renamed", Date: date, StartTime: "10:00", EndTime: "11:00", Venue: "Lab"}
	}

	t.Run("own date shift is not a conflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectCommit()
		event, err := svc.Edit(ctx, "EID01", update("2025-03-21"))
		require.NoError(t, err)
		assert.Equal(t, "T1", event.TeacherID)
		assert.Equal(t, "Renamed", store.events["EID01"].Name)
		assert.Equal(t, day("2025-03-21"), store.events["EID01"].Date)
	})

	t.Run("teacher conflict leaves event unchanged", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.Edit(ctx, "EID01", update("2025-04-18"))
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
		assert.Equal(t, "T1", appErr.Details["user_id"])
		assert.Equal(t, day("2025-03-21"), store.events["EID01"].Date)
	})

	t.Run("student conflict leaves event unchanged", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.Edit(ctx, "EID02", update("2025-05-22"))
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
		assert.Equal(t, "S1", appErr.Details["user_id"])
		assert.Equal(t, []string{"EID03"}, appErr.Details["conflicting_ids"])
		assert.Equal(t, day("2025-04-20"), store.events["EID02"].Date)
	})

	t.Run("blank name or venue is rejected", func(t *testing.T) {
		req := update("2025-03-21")
		req.Name = "   "
		_, err := svc.Edit(ctx, "EID01", req)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

		req = update("2025-03-21")
		req.Venue = "\t "
		_, err = svc.Edit(ctx, "EID01", req)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		assert.Equal(t, "Renamed", store.events["EID01"].Name)
		assert.Equal(t, "Lab", store.events["EID01"].Venue)
	})

	t.Run("missing event", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectRollback()
		_, err := svc.Edit(ctx, "EID77", update("2025-06-01"))
		assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventServiceDeleteCascades(t *testing.T) {
	store := newMemStore()
	store.addEvent("EID01", "T1", "2025-03-20")
	store.addEvent("EID02", "T2", "2025-06-20")
	store.addParticipation("EID01", "S1")
	store.addParticipation("EID02", "S2")
	store.files["FILEID-001"] = &models.EventFile{ID: "FILEID-001", EventID: "EID01", UserID: "S1", Name: "S1_EID01_a.pdf", Status: models.FileStatusApproved}
	store.files["FILEID-002"] = &models.EventFile{ID: "FILEID-002", EventID: "EID02", UserID: "S2", Name: "S2_EID02_b.pdf", Status: models.FileStatusPending}
	store.feedback["FEEDBACK01"] = &models.Feedback{ID: "FEEDBACK01", FileID: "FILEID-001", UserID: "T1", Text: "ok"}
	svc, mock := newEventService(t, store, nil)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.NoError(t, svc.Delete(ctx, "EID01"))

	assert.NotContains(t, store.events, "EID01")
	assert.Equal(t, []models.Participation{{EventID: "EID02", UserID: "S2"}}, store.participations)
	assert.NotContains(t, store.files, "FILEID-001")
	assert.Contains(t, store.files, "FILEID-002")
	assert.Empty(t, store.feedback)

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := svc.Delete(ctx, "EID01")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventServiceDeleteRollsBackOnCascadeFailure(t *testing.T) {
	cases := []struct {
		op       string
		err      error
		wantCode string
	}{
		{op: "feedback.DeleteByEvent", err: errors.New("disk full"), wantCode: appErrors.ErrInternal.Code},
		{op: "participations.DeleteByEvent", err: &pq.Error{Code: "40001"}, wantCode: appErrors.ErrConflict.Code},
		{op: "files.DeleteByEvent", err: &pq.Error{Code: "08006"}, wantCode: appErrors.ErrConnection.Code},
		{op: "events.Delete", err: &pq.Error{Code: "23503"}, wantCode: appErrors.ErrIntegrity.Code},
	}
	for _, tc := range cases {
		t.Run(tc.op, func(t *testing.T) {
			store := newMemStore()
			store.addEvent("EID01", "T1", "2025-03-20")
			store.addParticipation("EID01", "S1")
			store.files["FILEID-001"] = &models.EventFile{ID: "FILEID-001", EventID: "EID01", UserID: "S1", Name: "S1_EID01_a.pdf", Status: models.FileStatusPending}
			store.failOn = map[string]error{tc.op: tc.err}
			metrics := newRecordingMetrics()
			svc, mock := newEventService(t, store, metrics)

			mock.ExpectBegin()
			mock.ExpectRollback()
			err := svc.Delete(context.Background(), "EID01")
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
			assert.ErrorIs(t, err, tc.err)
			assert.Contains(t, store.events, "EID01")
			assert.Empty(t, metrics.mutations)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestEventServiceQueries(t *testing.T) {
	store := newMemStore()
	store.addEvent("EID01", "T1", "2025-03-20")
	store.addEvent("EID02", "T2", "2025-03-20")
	store.addEvent("EID03", "T1", "2025-04-20")
	store.addParticipation("EID02", "S1")
	svc, _ := newEventService(t, store, nil)
	ctx := context.Background()

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	owned, err := svc.ListByTeacher(ctx, "T1")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	joined, err := svc.ListByStudent(ctx, "S1")
	require.NoError(t, err)
	require.Len(t, joined, 1)
	assert.Equal(t, "EID02", joined[0].ID)

	sameDay, err := svc.ListByDate(ctx, "2025-03-20")
	require.NoError(t, err)
	assert.Len(t, sameDay, 2)

	_, err = svc.ListByDate(ctx, "March 20")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(ctx, "EID09")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	store.err = errors.New("db down")
	_, err = svc.List(ctx)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}
