package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStorage(sqlx.NewDb(db, "postgres"), slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestStorage_Record_Completed(t *testing.T) {
	s, mock := newMockStorage(t)
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO job_journal").
		WithArgs(int64(42), "converter.docling", "worker-1", "d1", "a.pdf",
			"completed", "completing", "", "", false,
			started, int64(1200)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Record(context.Background(), &domain.IterationResult{
		JobKey:     42,
		JobType:    "converter.docling",
		Worker:     "worker-1",
		DocumentID: "d1",
		FileName:   "a.pdf",
		Stage:      domain.StageCompleting,
		StartedAt:  started,
		Duration:   1200 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Record_Failed(t *testing.T) {
	s, mock := newMockStorage(t)
	cause := domain.NewJobError(domain.ErrFetch, 42, errors.New(strings.Repeat("x", 5000)))

	mock.ExpectExec("INSERT INTO job_journal").
		WithArgs(int64(42), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"failed", "fetching", "fetch", sqlmock.AnyArg(), true,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))

	err := s.Record(context.Background(), &domain.IterationResult{
		JobKey:          42,
		Stage:           domain.StageFetching,
		Err:             cause,
		FailureReported: true,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_Record_DBError(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectExec("INSERT INTO job_journal").WillReturnError(errors.New("connection refused"))

	err := s.Record(context.Background(), &domain.IterationResult{JobKey: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert journal entry")
}

type validUTF8Arg struct{}

func (validUTF8Arg) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && utf8.ValidString(s) && len(s) <= maxErrorMessage
}

func TestStorage_Record_MultiByteErrorMessage(t *testing.T) {
	s, mock := newMockStorage(t)
	cause := domain.NewJobError(domain.ErrFetch, 1, errors.New("x"+strings.Repeat("é", 3000)))

	mock.ExpectExec("INSERT INTO job_journal").
		WithArgs(int64(1), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"abandoned", "fetching", "fetch", validUTF8Arg{}, false,
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(3, 1))

	err := s.Record(context.Background(), &domain.IterationResult{
		JobKey: 1,
		Stage:  domain.StageFetching,
		Err:    cause,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{name: "short ascii", input: "abc", n: 10, expected: "abc"},
		{name: "cut ascii", input: "abcdef", n: 3, expected: "abc"},
		{name: "cut inside rune", input: "aé", n: 2, expected: "a"},
		{name: "cut on boundary", input: "éé", n: 2, expected: "é"},
		{name: "invalid input repaired", input: "a\xffb", n: 10, expected: "a\uFFFDb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateUTF8(tt.input, tt.n)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
