package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

// maxErrorMessage bounds the stored error text
const maxErrorMessage = 4096

// Storage writes iteration results to the job_journal table
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// Record inserts one journal row for result
func (s *Storage) Record(ctx context.Context, result *domain.IterationResult) error {
	query := `
		INSERT INTO job_journal (
			job_key, job_type, worker, document_id, file_name,
			status, stage, error_kind, error_message, failure_reported,
			started_at, duration_ms
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`

	var errorMessage string
	if result.Err != nil {
		errorMessage = truncateUTF8(result.Err.Error(), maxErrorMessage)
	}

	_, err := s.db.ExecContext(
		ctx,
		query,
		result.JobKey,
		result.JobType,
		result.Worker,
		result.DocumentID,
		result.FileName,
		result.Status(),
		result.Stage,
		result.ErrorKind(),
		errorMessage,
		result.FailureReported,
		result.StartedAt,
		result.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}

	s.logger.Debug("Journal entry recorded",
		slog.Int64("job_key", result.JobKey),
		slog.String("status", result.Status()),
	)

	return nil
}

// truncateUTF8 cuts s to at most n bytes on a rune boundary. PostgreSQL
// rejects invalid UTF-8 in text columns.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	i := n
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return strings.ToValidUTF8(s[:i], "\uFFFD")
}
