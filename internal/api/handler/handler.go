package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/zeebe-docling-worker/internal/api/model"
	"github.com/cuongbtq/zeebe-docling-worker/internal/api/storage"
)

// JournalStore is the read side of the job journal
type JournalStore interface {
	ListEntries(ctx context.Context, filter storage.JournalFilter) ([]model.JournalEntry, error)
	ListByJobKey(ctx context.Context, jobKey int64) ([]model.JournalEntry, error)
}

// HealthChecker reports whether the journal database is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Store       JournalStore
	Health      HealthChecker
	ServiceName string
}

// JournalHandler handles journal-related HTTP requests
type JournalHandler struct {
	logger *slog.Logger
	store  JournalStore
}

// NewJournalHandler creates a new JournalHandler instance
func NewJournalHandler(deps *Dependencies) *JournalHandler {
	return &JournalHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}
