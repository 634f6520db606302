package model

import "time"

type JournalEntry struct {
	ID              int64     `db:"id"`
	JobKey          int64     `db:"job_key"`
	JobType         string    `db:"job_type"`
	Worker          string    `db:"worker"`
	DocumentID      string    `db:"document_id"`
	FileName        string    `db:"file_name"`
	Status          string    `db:"status"`
	Stage           string    `db:"stage"`
	ErrorKind       string    `db:"error_kind"`
	ErrorMessage    string    `db:"error_message"`
	FailureReported bool      `db:"failure_reported"`
	StartedAt       time.Time `db:"started_at"`
	DurationMs      int64     `db:"duration_ms"`
	CreatedAt       time.Time `db:"created_at"`
}
