package domain

import "time"

// FileRecord is the unit of ingestion: one row per distinct content hash.
type FileRecord struct {
	ID                string    `json:"id"`
	ContentHash       string    `json:"content_hash"`
	OriginalFilename  string    `json:"original_filename"`
	WorkingPath       string    `json:"working_path"`
	SizeBytes         int64     `json:"size_bytes"`
	MimeType          string    `json:"mime_type"`
	OriginalFilePath  string    `json:"original_file_path,omitempty"`
	ProcessedFilePath string    `json:"processed_file_path,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type IngestStatus string

const (
	IngestNew       IngestStatus = "new"
	IngestDuplicate IngestStatus = "duplicate"
)

type IngestResult struct {
	Status IngestStatus `json:"status"`
	FileID string       `json:"file_id"`
	TaskID string       `json:"task_id,omitempty"`
}

type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepSuccess    StepStatus = "success"
	StepFailure    StepStatus = "failure"
)

// ProcessingLogEntry is an append-only audit record. Entries are never
// mutated; the file's overall status is derived from them.
type ProcessingLogEntry struct {
	ID        int64      `json:"id"`
	FileID    string     `json:"file_id"`
	TaskID    string     `json:"task_id"`
	StepName  string     `json:"step_name"`
	Status    StepStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// DeriveStatus computes a file's processing status from its audit trail.
// Failure anywhere wins, then any in-flight step, then the latest entry.
func DeriveStatus(entries []ProcessingLogEntry) ProcessingStatus {
	if len(entries) == 0 {
		return StatusPending
	}

	inProgress := false
	for _, entry := range entries {
		switch entry.Status {
		case StepFailure:
			return StatusFailed
		case StepInProgress:
			inProgress = true
		}
	}
	if inProgress {
		return StatusProcessing
	}

	latest := entries[0]
	for _, entry := range entries[1:] {
		if entry.Timestamp.After(latest.Timestamp) {
			latest = entry
		}
	}
	if latest.Status == StepSuccess {
		return StatusCompleted
	}
	return StatusPending
}
