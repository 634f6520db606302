package dto

type ListJournalRequest struct {
	JobType   string `form:"job_type"`
	Status    string `form:"status"`
	ErrorKind string `form:"error_kind"`
	Worker    string `form:"worker"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

type ListJournalResponse struct {
	Entries    []JournalEntryDTO `json:"entries"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

type JobHistoryResponse struct {
	JobKey  int64             `json:"job_key"`
	Entries []JournalEntryDTO `json:"entries"`
}

type JournalEntryDTO struct {
	ID              int64  `json:"id"`
	JobKey          int64  `json:"job_key"`
	JobType         string `json:"job_type"`
	Worker          string `json:"worker"`
	DocumentID      string `json:"document_id,omitempty"`
	FileName        string `json:"file_name,omitempty"`
	Status          string `json:"status"`
	Stage           string `json:"stage"`
	ErrorKind       string `json:"error_kind,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
	FailureReported bool   `json:"failure_reported"`
	StartedAt       string `json:"started_at"`
	DurationMs      int64  `json:"duration_ms"`
	CreatedAt       string `json:"created_at"`
}
