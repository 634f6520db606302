package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/zeebe-docling-worker/internal/api/domain"
	"github.com/cuongbtq/zeebe-docling-worker/internal/api/model"
)

const journalColumns = `
	id, job_key, job_type, worker, document_id, file_name,
	status, stage, error_kind, error_message, failure_reported,
	started_at, duration_ms, created_at
`

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

type JournalFilter struct {
	JobType   string
	Status    string
	ErrorKind string
	Worker    string
	PageSize  int
	Cursor    *JournalCursor
}

type JournalCursor struct {
	CreatedAt time.Time
	ID        int64
}

// ListEntries returns up to PageSize+1 entries, newest first
func (s *Storage) ListEntries(ctx context.Context, filter JournalFilter) ([]model.JournalEntry, error) {
	query := `SELECT` + journalColumns + `FROM job_journal WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	// Filters
	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.ErrorKind != "" {
		query += fmt.Sprintf(" AND error_kind = $%d", argIdx)
		args = append(args, filter.ErrorKind)
		argIdx++
	}

	if filter.Worker != "" {
		query += fmt.Sprintf(" AND worker = $%d", argIdx)
		args = append(args, filter.Worker)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	// Order by created_at DESC, id DESC for consistent pagination
	query += " ORDER BY created_at DESC, id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var entries []model.JournalEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	return entries, nil
}

// ListByJobKey returns every iteration recorded for one job, oldest first
func (s *Storage) ListByJobKey(ctx context.Context, jobKey int64) ([]model.JournalEntry, error) {
	query := `SELECT` + journalColumns + `FROM job_journal WHERE job_key = $1 ORDER BY created_at ASC, id ASC`

	var entries []model.JournalEntry
	if err := s.db.SelectContext(ctx, &entries, query, jobKey); err != nil {
		return nil, fmt.Errorf("failed to get job history: %w", err)
	}

	if len(entries) == 0 {
		return nil, domain.ErrJournalEntryNotFound
	}

	return entries, nil
}
