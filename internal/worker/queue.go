package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
	"github.com/cuongbtq/zeebe-docling-worker/shared/zeebe"
)

// Queue claims jobs and reports their outcome
type Queue interface {
	Activate(ctx context.Context, jobType string) (*domain.Job, error)
	Complete(ctx context.Context, job *domain.Job, variables map[string]any) error
	Fail(ctx context.Context, job *domain.Job, cause error) error
}

// Gateway is the subset of the Zeebe gateway client the queue needs
type Gateway interface {
	ActivateJobs(ctx context.Context, req *zeebe.ActivateRequest) ([]*pb.ActivatedJob, error)
	CompleteJob(ctx context.Context, jobKey int64, variables string) error
	FailJob(ctx context.Context, jobKey int64, retries int32, message string, backoff time.Duration) error
}

// QueueConfig holds activation and failure-report settings
type QueueConfig struct {
	WorkerName     string
	JobTimeout     time.Duration
	RequestTimeout time.Duration
	RetryBackoff   time.Duration
}

// ZeebeQueue activates one job at a time from a Zeebe gateway
type ZeebeQueue struct {
	gateway Gateway
	config  QueueConfig
	logger  *slog.Logger
}

// NewZeebeQueue creates a queue over gateway
func NewZeebeQueue(gateway Gateway, config QueueConfig, logger *slog.Logger) *ZeebeQueue {
	return &ZeebeQueue{gateway: gateway, config: config, logger: logger}
}

// Activate claims at most one job of jobType. An empty poll yields ErrNoJobActivated.
func (q *ZeebeQueue) Activate(ctx context.Context, jobType string) (*domain.Job, error) {
	jobs, err := q.gateway.ActivateJobs(ctx, &zeebe.ActivateRequest{
		JobType:           jobType,
		Worker:            q.config.WorkerName,
		MaxJobsToActivate: 1,
		Timeout:           q.config.JobTimeout,
		RequestTimeout:    q.config.RequestTimeout,
	})
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, domain.ErrNoJobActivated
	}
	if len(jobs) > 1 {
		// maxJobsToActivate is 1; the rest would expire on their lease untouched
		q.logger.Warn("Gateway returned more jobs than requested",
			slog.Int("jobs", len(jobs)),
		)
	}

	return toJob(jobs[0]), nil
}

// Complete sends the completion variables for job
func (q *ZeebeQueue) Complete(ctx context.Context, job *domain.Job, variables map[string]any) error {
	payload, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("failed to encode completion variables: %w", err)
	}
	return q.gateway.CompleteJob(ctx, job.Key, string(payload))
}

// Fail reports cause to the engine with one retry fewer
func (q *ZeebeQueue) Fail(ctx context.Context, job *domain.Job, cause error) error {
	retries := job.Retries - 1
	if retries < 0 {
		retries = 0
	}
	return q.gateway.FailJob(ctx, job.Key, retries, cause.Error(), q.config.RetryBackoff)
}

func toJob(j *pb.ActivatedJob) *domain.Job {
	job := &domain.Job{
		Key:                j.GetKey(),
		Type:               j.GetType(),
		Variables:          j.GetVariables(),
		ProcessInstanceKey: j.GetProcessInstanceKey(),
		BpmnProcessID:      j.GetBpmnProcessId(),
		ElementID:          j.GetElementId(),
		Worker:             j.GetWorker(),
		Retries:            j.GetRetries(),
	}
	if d := j.GetDeadline(); d > 0 {
		job.Deadline = time.UnixMilli(d)
	}
	return job
}
