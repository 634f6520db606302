package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/zeebe-docling-worker/internal/api/domain"
	"github.com/cuongbtq/zeebe-docling-worker/internal/api/dto"
	"github.com/cuongbtq/zeebe-docling-worker/internal/api/model"
	"github.com/cuongbtq/zeebe-docling-worker/internal/api/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListJournal handles GET /api/v1/journal
func (h *JournalHandler) ListJournal(c *gin.Context) {
	var req dto.ListJournalRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Warn("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	if req.Status != "" && !domain.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	cursor, err := DecodeJournalCursor(req.Cursor)
	if err != nil {
		h.logger.Warn("Invalid cursor", slog.String("cursor", req.Cursor), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}

	entries, err := h.store.ListEntries(c.Request.Context(), storage.JournalFilter{
		JobType:   req.JobType,
		Status:    req.Status,
		ErrorKind: req.ErrorKind,
		Worker:    req.Worker,
		PageSize:  req.PageSize,
		Cursor:    cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list journal entries", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list journal entries"})
		return
	}

	resp := dto.ListJournalResponse{Entries: []dto.JournalEntryDTO{}}

	// One extra row means there is another page
	if len(entries) > req.PageSize {
		entries = entries[:req.PageSize]
		last := entries[len(entries)-1]
		resp.NextCursor = EncodeJournalCursor(&storage.JournalCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toEntryDTO(entry))
	}

	c.JSON(http.StatusOK, resp)
}

// GetJobHistory handles GET /api/v1/journal/jobs/:job_key
func (h *JournalHandler) GetJobHistory(c *gin.Context) {
	jobKey, err := strconv.ParseInt(c.Param("job_key"), 10, 64)
	if err != nil || jobKey <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job key"})
		return
	}

	entries, err := h.store.ListByJobKey(c.Request.Context(), jobKey)
	if err != nil {
		if errors.Is(err, domain.ErrJournalEntryNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		h.logger.Error("Failed to get job history",
			slog.Int64("job_key", jobKey),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job history"})
		return
	}

	resp := dto.JobHistoryResponse{JobKey: jobKey, Entries: make([]dto.JournalEntryDTO, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, toEntryDTO(entry))
	}

	c.JSON(http.StatusOK, resp)
}

func toEntryDTO(entry model.JournalEntry) dto.JournalEntryDTO {
	return dto.JournalEntryDTO{
		ID:              entry.ID,
		JobKey:          entry.JobKey,
		JobType:         entry.JobType,
		Worker:          entry.Worker,
		DocumentID:      entry.DocumentID,
		FileName:        entry.FileName,
		Status:          entry.Status,
		Stage:           entry.Stage,
		ErrorKind:       entry.ErrorKind,
		ErrorMessage:    entry.ErrorMessage,
		FailureReported: entry.FailureReported,
		StartedAt:       entry.StartedAt.UTC().Format(time.RFC3339Nano),
		DurationMs:      entry.DurationMs,
		CreatedAt:       entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
