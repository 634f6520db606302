package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterationResult_Status(t *testing.T) {
	tests := []struct {
		name   string
		result IterationResult
		status string
		kind   string
	}{
		{"idle", IterationResult{Err: NewJobError(ErrActivation, 0, ErrNoJobActivated)}, StatusIdle, "activation"},
		{"completed", IterationResult{JobKey: 42}, StatusCompleted, ""},
		{"abandoned", IterationResult{JobKey: 42, Err: NewJobError(ErrFetch, 42, errors.New("404"))}, StatusAbandoned, "fetch"},
		{"failed", IterationResult{JobKey: 42, Err: NewJobError(ErrProcessing, 42, errors.New("boom")), FailureReported: true}, StatusFailed, "processing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.result.Status())
			assert.Equal(t, tt.kind, tt.result.ErrorKind())
		})
	}
}
