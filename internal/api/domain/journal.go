package domain

import (
	"errors"

	workerdomain "github.com/cuongbtq/zeebe-docling-worker/internal/worker/domain"
)

var (
	ErrJournalEntryNotFound = errors.New("journal entry not found")
)

// IsValidStatus reports whether status is one the worker records
func IsValidStatus(status string) bool {
	switch status {
	case workerdomain.StatusCompleted, workerdomain.StatusAbandoned, workerdomain.StatusFailed:
		return true
	}
	return false
}
