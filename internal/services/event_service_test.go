package services

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhvu/schedly-be/internal/apperr"
)

func TestEventRecordAndRecent(t *testing.T) {
	db := newTestDB(t)
	users := NewUserService(db)
	events := NewEventService(db)
	alice := registerTestUser(t, users, "alice", "a@x.com")

	events.Record(alice, "auth.login", "info", "Signed in.")
	events.Record(alice, "schedule.create", "info", "Schedule created.")
	events.Record("someone-else", "auth.login", "info", "Signed in.")

	list, err := events.RecentForUser(alice, 10)
	require.NoError(t, err)
	require.Len(t, list, 2, "activity log is scoped to the user")

	limited, err := events.RecentForUser(alice, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecentForUser_StorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, type").WillReturnError(errors.New("connection refused"))

	events := NewEventService(db)
	_, err = events.RecentForUser("u1", 10)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleList_StorageFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, user_id, title").WillReturnError(errors.New("connection refused"))

	schedules := NewScheduleService(db, NewEventService(db))
	_, err = schedules.ListForUser("u1")
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
