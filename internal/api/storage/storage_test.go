package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/zeebe-docling-worker/internal/api/domain"
)

var journalRowColumns = []string{
	"id", "job_key", "job_type", "worker", "document_id", "file_name",
	"status", "stage", "error_kind", "error_message", "failure_reported",
	"started_at", "duration_ms", "created_at",
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "postgres")), mock
}

func TestStorage_ListEntries_NoFilters(t *testing.T) {
	s, mock := newMockStorage(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(journalRowColumns).
		AddRow(2, 42, "converter.docling", "w1", "d1", "a.pdf", "completed", "completing", "", "", false, created, 1200, created).
		AddRow(1, 41, "converter.docling", "w1", "d0", "b.pdf", "failed", "fetching", "fetch", "status 404", false, created, 80, created)

	mock.ExpectQuery(regexp.QuoteMeta("FROM job_journal WHERE 1=1 ORDER BY created_at DESC, id DESC LIMIT $1")).
		WithArgs(21).
		WillReturnRows(rows)

	entries, err := s.ListEntries(context.Background(), JournalFilter{PageSize: 20})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(42), entries[0].JobKey)
	assert.Equal(t, "fetch", entries[1].ErrorKind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListEntries_FiltersAndCursor(t *testing.T) {
	s, mock := newMockStorage(t)
	cursorAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		"AND job_type = $1 AND status = $2 AND error_kind = $3 AND worker = $4 AND (created_at, id) < ($5, $6) ORDER BY created_at DESC, id DESC LIMIT $7")).
		WithArgs("converter.docling", "failed", "processing", "w1", cursorAt, int64(99), 6).
		WillReturnRows(sqlmock.NewRows(journalRowColumns))

	entries, err := s.ListEntries(context.Background(), JournalFilter{
		JobType:   "converter.docling",
		Status:    "failed",
		ErrorKind: "processing",
		Worker:    "w1",
		PageSize:  5,
		Cursor:    &JournalCursor{CreatedAt: cursorAt, ID: 99},
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListEntries_DBError(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery("FROM job_journal").WillReturnError(errors.New("connection reset"))

	_, err := s.ListEntries(context.Background(), JournalFilter{PageSize: 20})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list journal entries")
}

func TestStorage_ListByJobKey(t *testing.T) {
	s, mock := newMockStorage(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(journalRowColumns).
		AddRow(1, 42, "converter.docling", "w1", "d1", "a.pdf", "failed", "processing", "processing", "docling api error: 500", true, created, 900, created).
		AddRow(3, 42, "converter.docling", "w2", "d1", "a.pdf", "completed", "completing", "", "", false, created.Add(time.Minute), 1100, created.Add(time.Minute))

	mock.ExpectQuery(regexp.QuoteMeta("FROM job_journal WHERE job_key = $1 ORDER BY created_at ASC, id ASC")).
		WithArgs(int64(42)).
		WillReturnRows(rows)

	entries, err := s.ListByJobKey(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].FailureReported)
	assert.Equal(t, "completed", entries[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListByJobKey_NotFound(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery("FROM job_journal WHERE job_key").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(journalRowColumns))

	_, err := s.ListByJobKey(context.Background(), 7)
	assert.ErrorIs(t, err, domain.ErrJournalEntryNotFound)
}
