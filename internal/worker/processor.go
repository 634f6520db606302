package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
	"github.com/cuongbtq/zeebe-docling-worker/shared/oauth"
)

const (
	recordTimeout   = 10 * time.Second
	completeTimeout = 10 * time.Second
)

var tracer = otel.Tracer("github.com/cuongbtq/zeebe-docling-worker/internal/worker")

// RunOnce performs one activate, fetch, process, complete pass and reports
// what happened. It never panics on job-level failures.
func (w *Worker) RunOnce(ctx context.Context) *domain.IterationResult {
	result := &domain.IterationResult{
		JobType:   w.jobType,
		Worker:    w.workerName,
		Stage:     domain.StageActivating,
		StartedAt: time.Now(),
	}

	ctx, span := tracer.Start(ctx, "worker.iteration", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	job, path, err := w.process(ctx, result)
	result.Err = err

	if err != nil && job != nil && w.reportFailures {
		w.reportFailure(ctx, job, result)
	}
	if path != "" && w.cleanupStaged {
		if rmErr := w.fetcher.Remove(path); rmErr != nil {
			w.logger.Warn("Failed to remove staged file",
				slog.String("path", path),
				slog.String("error", rmErr.Error()),
			)
		}
	}

	result.Duration = time.Since(result.StartedAt)

	span.SetAttributes(
		attribute.Int64("job.key", result.JobKey),
		attribute.String("job.type", result.JobType),
		attribute.String("iteration.stage", result.Stage),
		attribute.String("iteration.status", result.Status()),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result.ErrorKind())
	}

	w.logResult(ctx, result)

	if result.Activated() {
		w.record(ctx, result)
	}

	return result
}

func (w *Worker) process(ctx context.Context, result *domain.IterationResult) (*domain.Job, string, error) {
	var job *domain.Job
	err := w.stage(ctx, "activate", func(ctx context.Context) error {
		var err error
		job, err = w.queue.Activate(ctx, w.jobType)
		return err
	})
	if err != nil {
		return nil, "", classify(domain.ErrActivation, 0, err)
	}

	result.JobKey = job.Key
	if job.Type != "" {
		result.JobType = job.Type
	}
	result.Stage = domain.StageFetching

	input, err := domain.ParseInput(job.Variables)
	if err != nil {
		return job, "", classify(domain.ErrInvalidVariables, job.Key, err)
	}
	doc := input.Document()
	result.DocumentID = doc.DocumentID
	result.FileName = doc.Metadata.FileName

	var path string
	err = w.stage(ctx, "fetch", func(ctx context.Context) error {
		var err error
		path, err = w.fetcher.Fetch(ctx, doc)
		return err
	})
	if err != nil {
		return job, "", classify(domain.ErrFetch, job.Key, err)
	}

	result.Stage = domain.StageProcessing

	var output string
	err = w.stage(ctx, "convert", func(ctx context.Context) error {
		var err error
		output, err = w.converter.Convert(ctx, path)
		return err
	})
	if err != nil {
		return job, path, classify(domain.ErrProcessing, job.Key, err)
	}

	result.Stage = domain.StageCompleting

	// A converted document is still completed when shutdown starts here
	err = w.stage(ctx, "complete", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
		defer cancel()
		return w.queue.Complete(ctx, job, input.WithOutput(output))
	})
	if err != nil {
		return job, path, classify(domain.ErrCompletion, job.Key, err)
	}

	return job, path, nil
}

// stage runs fn inside a child span
func (w *Worker) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "worker."+name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// classify wraps err under kind; credential failures are reported as auth
// whichever stage hit them
func classify(kind error, jobKey int64, err error) error {
	if oauth.IsAuthError(err) {
		kind = domain.ErrAuth
	}
	return domain.NewJobError(kind, jobKey, err)
}

func (w *Worker) reportFailure(ctx context.Context, job *domain.Job, result *domain.IterationResult) {
	// on shutdown the lease expiry takes over
	if ctx.Err() != nil {
		return
	}

	if err := w.queue.Fail(ctx, job, result.Err); err != nil {
		w.logger.WarnContext(ctx, "Failed to report job failure",
			slog.Int64("job_key", job.Key),
			slog.String("error", err.Error()),
		)
		return
	}
	result.FailureReported = true
}

func (w *Worker) logResult(ctx context.Context, result *domain.IterationResult) {
	if result.Err == nil {
		w.logger.InfoContext(ctx, "Job completed",
			slog.Int64("job_key", result.JobKey),
			slog.String("job_type", result.JobType),
			slog.String("document_id", result.DocumentID),
			slog.Duration("duration", result.Duration),
		)
		return
	}

	if ctx.Err() != nil && errors.Is(result.Err, context.Canceled) {
		w.logger.InfoContext(ctx, "Iteration interrupted by shutdown",
			slog.String("stage", result.Stage),
			slog.Int64("job_key", result.JobKey),
		)
		return
	}

	w.logger.ErrorContext(ctx, "Job worker iteration failed",
		slog.String("error_kind", result.ErrorKind()),
		slog.String("stage", result.Stage),
		slog.String("status", result.Status()),
		slog.Int64("job_key", result.JobKey),
		slog.String("error", result.Err.Error()),
	)
}

// record hands the result to every recorder; their errors are logged only
func (w *Worker) record(ctx context.Context, result *domain.IterationResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	for _, r := range w.recorders {
		if err := r.Record(ctx, result); err != nil {
			w.logger.WarnContext(ctx, "Failed to record iteration",
				slog.Int64("job_key", result.JobKey),
				slog.String("error", err.Error()),
			)
		}
	}
}
