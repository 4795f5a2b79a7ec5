package eventlog

import (
	"context"
	"testing"
	"time"

	"dispatchsim/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(mockDB, "postgres")
	return sqlxDB, mock
}

func TestPostgresSink_FlushesPendingBatchOnClose(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO event_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sink := NewPostgresSink(db, "run-1", time.Hour, nil)

	evt := models.Event{
		Seq:       1,
		Timestamp: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Type:      models.EventRequestArrived,
		Payload:   map[string]interface{}{"request_id": "r1"},
	}
	require.NoError(t, sink.Record(context.Background(), evt))

	require.NoError(t, sink.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_NoFlushWhenEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	sink := NewPostgresSink(db, "run-2", time.Hour, nil)
	require.NoError(t, sink.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}
