package domain

import "time"

// IterationResult records what one pass of the worker loop did
type IterationResult struct {
	JobKey          int64
	JobType         string
	Worker          string
	DocumentID      string
	FileName        string
	Stage           string // last stage entered
	Err             error
	FailureReported bool
	StartedAt       time.Time
	Duration        time.Duration
}

// Activated reports whether a job was claimed in this iteration
func (r *IterationResult) Activated() bool {
	return r.JobKey != 0
}

// Status summarizes the outcome
func (r *IterationResult) Status() string {
	switch {
	case !r.Activated():
		return StatusIdle
	case r.Err == nil:
		return StatusCompleted
	case r.FailureReported:
		return StatusFailed
	default:
		return StatusAbandoned
	}
}

// ErrorKind returns the kind label of Err, empty on success
func (r *IterationResult) ErrorKind() string {
	return KindName(r.Err)
}
