package worker

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/mock"

	"github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
	"github.com/cuongbtq/zeebe-docling-worker/shared/zeebe"
)

// MockQueue implements Queue
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Activate(ctx context.Context, jobType string) (*domain.Job, error) {
	args := m.Called(ctx, jobType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockQueue) Complete(ctx context.Context, job *domain.Job, variables map[string]any) error {
	args := m.Called(ctx, job, variables)
	return args.Error(0)
}

func (m *MockQueue) Fail(ctx context.Context, job *domain.Job, cause error) error {
	args := m.Called(ctx, job, cause)
	return args.Error(0)
}

// MockFetcher implements Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, ref domain.DocumentReference) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *MockFetcher) Remove(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

// MockConverter implements converter.Converter
type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

// MockRecorder implements Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(ctx context.Context, result *domain.IterationResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

// MockGateway implements Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ActivateJobs(ctx context.Context, req *zeebe.ActivateRequest) ([]*pb.ActivatedJob, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*pb.ActivatedJob), args.Error(1)
}

func (m *MockGateway) CompleteJob(ctx context.Context, jobKey int64, variables string) error {
	args := m.Called(ctx, jobKey, variables)
	return args.Error(0)
}

func (m *MockGateway) FailJob(ctx context.Context, jobKey int64, retries int32, message string, backoff time.Duration) error {
	args := m.Called(ctx, jobKey, retries, message, backoff)
	return args.Error(0)
}

// MockPublisher implements Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	args := m.Called(ctx, routingKey, body)
	return args.Error(0)
}
