package worker

import (
	"context"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

// Recorder receives the result of every iteration that activated a job
type Recorder interface {
	Record(ctx context.Context, result *domain.IterationResult) error
}

// RecorderFunc adapts a function to Recorder
type RecorderFunc func(ctx context.Context, result *domain.IterationResult) error

// Record calls f(ctx, result)
func (f RecorderFunc) Record(ctx context.Context, result *domain.IterationResult) error {
	return f(ctx, result)
}
