package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cuongbtq/zeebe-docling-worker/internal/converter"
	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

// Fetcher stages the document a job references
type Fetcher interface {
	Fetch(ctx context.Context, ref domain.DocumentReference) (string, error)
	Remove(path string) error
}

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	Queue          Queue
	Fetcher        Fetcher
	Converter      converter.Converter
	Recorders      []Recorder
	JobType        string
	WorkerName     string
	ReportFailures bool          // FailJob on error instead of waiting for lease expiry
	ErrorBackoff   time.Duration // pause after a failed iteration
	CleanupStaged  bool
}

// Worker runs the job lifecycle loop: one job at a time, failures isolated per iteration
type Worker struct {
	logger         *slog.Logger
	queue          Queue
	fetcher        Fetcher
	converter      converter.Converter
	recorders      []Recorder
	jobType        string
	workerName     string
	reportFailures bool
	errorBackoff   time.Duration
	cleanupStaged  bool

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	jobType := cfg.JobType
	if jobType == "" {
		jobType = domain.DefaultJobType
	}

	return &Worker{
		logger:         cfg.Logger,
		queue:          cfg.Queue,
		fetcher:        cfg.Fetcher,
		converter:      cfg.Converter,
		recorders:      cfg.Recorders,
		jobType:        jobType,
		workerName:     cfg.WorkerName,
		reportFailures: cfg.ReportFailures,
		errorBackoff:   cfg.ErrorBackoff,
		cleanupStaged:  cfg.CleanupStaged,
		stopChan:       make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Start runs iterations until ctx is canceled or Stop is called.
// Iteration errors never end the loop.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.logger.Info("Starting worker",
		slog.String("job_type", w.jobType),
		slog.String("worker", w.workerName),
		slog.Bool("report_failures", w.reportFailures),
		slog.Duration("error_backoff", w.errorBackoff),
	)

	for {
		if ctx.Err() != nil {
			w.logger.Info("Worker context canceled, stopping...")
			return nil
		}

		result := w.RunOnce(ctx)

		if result.Err != nil && w.errorBackoff > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(w.errorBackoff):
			}
		}
	}
}

// Stop signals the loop and waits for the in-flight iteration to finish.
// A job that was already converted is still completed.
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	if w.started.Load() {
		<-w.done
	}
	w.logger.Info("Worker stopped")
}
