package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth is returned when a bearer credential cannot be obtained or refreshed
	ErrAuth = errors.New("authentication failed")

	// ErrActivation is returned when no job could be claimed from the queue
	ErrActivation = errors.New("job activation failed")

	// ErrNoJobActivated is the activation cause when the long poll returned zero jobs
	ErrNoJobActivated = errors.New("no job activated")

	// ErrInvalidVariables is returned when job variables lack the document reference or output name
	ErrInvalidVariables = errors.New("invalid job variables")

	// ErrFetch is returned when the referenced document cannot be downloaded or staged
	ErrFetch = errors.New("document fetch failed")

	// ErrProcessing is returned when the conversion delegate fails
	ErrProcessing = errors.New("document processing failed")

	// ErrCompletion is returned when the queue rejects the completion
	ErrCompletion = errors.New("job completion failed")
)

// JobError ties an iteration failure to its kind and, once activated, its job
type JobError struct {
	Kind   error
	JobKey int64
	Err    error
}

func (e *JobError) Error() string {
	msg := fmt.Sprintf("%v: %v", e.Kind, e.Err)
	if errors.Is(e.Err, e.Kind) {
		msg = e.Err.Error()
	}
	if e.JobKey != 0 {
		return fmt.Sprintf("job %d: %s", e.JobKey, msg)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause
func (e *JobError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewJobError wraps err under kind. A nil err yields nil.
func NewJobError(kind error, jobKey int64, err error) error {
	if err == nil {
		return nil
	}
	return &JobError{Kind: kind, JobKey: jobKey, Err: err}
}

var kindNames = []struct {
	kind error
	name string
}{
	{ErrAuth, "auth"},
	{ErrActivation, "activation"},
	{ErrInvalidVariables, "variables"},
	{ErrFetch, "fetch"},
	{ErrProcessing, "processing"},
	{ErrCompletion, "completion"},
}

// KindName returns the short kind label used in logs, the journal and events
func KindName(err error) string {
	if err == nil {
		return ""
	}
	// auth is checked first so a refresh failure during fetch is reported as auth
	for _, k := range kindNames {
		if errors.Is(err, k.kind) {
			return k.name
		}
	}
	return "unknown"
}
