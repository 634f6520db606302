package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

// Publisher sends a message body under a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// OutcomeEvent is the message published for every processed job
type OutcomeEvent struct {
	EventID         string    `json:"event_id"`
	JobKey          int64     `json:"job_key"`
	JobType         string    `json:"job_type"`
	Worker          string    `json:"worker"`
	DocumentID      string    `json:"document_id,omitempty"`
	FileName        string    `json:"file_name,omitempty"`
	Status          string    `json:"status"`
	Stage           string    `json:"stage"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	FailureReported bool      `json:"failure_reported"`
	DurationMs      int64     `json:"duration_ms"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// EventRecorder publishes an OutcomeEvent per iteration
type EventRecorder struct {
	publisher Publisher
}

// NewEventRecorder creates an EventRecorder
func NewEventRecorder(publisher Publisher) *EventRecorder {
	return &EventRecorder{publisher: publisher}
}

// NewOutcomeEvent builds the event for result
func NewOutcomeEvent(result *domain.IterationResult) *OutcomeEvent {
	event := &OutcomeEvent{
		EventID:         uuid.NewString(),
		JobKey:          result.JobKey,
		JobType:         result.JobType,
		Worker:          result.Worker,
		DocumentID:      result.DocumentID,
		FileName:        result.FileName,
		Status:          result.Status(),
		Stage:           result.Stage,
		ErrorKind:       result.ErrorKind(),
		FailureReported: result.FailureReported,
		DurationMs:      result.Duration.Milliseconds(),
		OccurredAt:      result.StartedAt.Add(result.Duration).UTC(),
	}
	if result.Err != nil {
		event.ErrorMessage = result.Err.Error()
	}
	return event
}

// Record publishes the outcome under "job.<status>"
func (r *EventRecorder) Record(ctx context.Context, result *domain.IterationResult) error {
	event := NewOutcomeEvent(result)

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode outcome event: %w", err)
	}

	return r.publisher.Publish(ctx, "job."+event.Status, body)
}
