package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-events-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var eventRowColumns = []string{"event_id", "event_name", "event_date", "event_start_time", "event_end_time", "event_venue", "user_id"}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	date := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(eventRowColumns).AddRow("EID01", "Science Fair", date, "09:00", "12:00", "Hall", "T1")
	mock.ExpectQuery(`SELECT .* FROM events e WHERE e\.event_id = \$1$`).
		WithArgs("EID01").
		WillReturnRows(rows)

	event, err := repo.FindByID(context.Background(), nil, "EID01")
	require.NoError(t, err)
	assert.Equal(t, "Science Fair", event.Name)
	assert.Equal(t, "09:00", event.StartTime)
	assert.Equal(t, "T1", event.TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(`SELECT .* FROM events e WHERE e\.event_id = \$1 FOR UPDATE`).
		WithArgs("EID09").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByIDForUpdate(context.Background(), nil, "EID09")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryMaxID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_id FROM events ORDER BY LENGTH(event_id) DESC, event_id DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}).AddRow("EID07"))

	id, err := repo.MaxID(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "EID07", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryMaxIDEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT event_id FROM events")).
		WillReturnRows(sqlmock.NewRows([]string{"event_id"}))

	id, err := repo.MaxID(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateUsesTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events (event_id, event_name, event_date")).
		WithArgs("EID02", "Sports Day", "2025-03-24", "08:00", "15:00", "Field", "T1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	err = repo.Create(context.Background(), tx, &models.Event{
		ID:        "EID02",
		Name:      "Sports Day",
		Date:      time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
		StartTime: "08:00",
		EndTime:   "15:00",
		Venue:     "Field",
		TeacherID: "T1",
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET event_name = $2")).
		WithArgs("EID05", "Renamed", "2025-04-01", "10:00", "11:00", "Lab").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.Event{
		ID: "EID05", Name: "Renamed", Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		StartTime: "10:00", EndTime: "11:00", Venue: "Lab",
	})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateTeacher(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE events SET user_id = $2 WHERE event_id = $1")).
		WithArgs("EID01", "T2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateTeacher(context.Background(), nil, "EID01", "T2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE event_id = $1")).
		WithArgs("EID01").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE event_id = $1")).
		WithArgs("EID01").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), nil, "EID01"))
	assert.ErrorIs(t, repo.Delete(context.Background(), nil, "EID01"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	rows := sqlmock.NewRows(eventRowColumns).
		AddRow("EID01", "Science Fair", time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), "09:00", "12:00", "Hall", "T1").
		AddRow("EID03", "Debate", time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC), "13:00", "14:00", "Room 4", "T2")
	mock.ExpectQuery(`JOIN event_participation ep ON ep\.event_id = e\.event_id\s+WHERE ep\.user_id = \$1`).
		WithArgs("S1").
		WillReturnRows(rows)

	events, err := repo.ListByStudent(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "EID03", events[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListByDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.event_date = $1::date")).
		WithArgs("2025-03-20").
		WillReturnRows(sqlmock.NewRows(eventRowColumns))

	events, err := repo.ListByDate(context.Background(), time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}
