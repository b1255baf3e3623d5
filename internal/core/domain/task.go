package domain

import "time"

// TaskType selects the queue subject a task envelope is published on.
type TaskType string

const (
	TaskProcess    TaskType = "process"
	TaskOCR        TaskType = "ocr"
	TaskMetadata   TaskType = "metadata"
	TaskDistribute TaskType = "distribute"
	TaskUpload     TaskType = "upload"
	TaskConvert    TaskType = "convert"
)

// Task is the envelope exchanged between pipeline stages over the queue.
// Chaining is fire-and-forget: a stage publishes its successor and returns.
type Task struct {
	ID          string    `json:"id"`
	Type        TaskType  `json:"type"`
	FileID      string    `json:"file_id"`
	Path        string    `json:"path,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Text        string    `json:"text,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Attempt     int       `json:"attempt"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// TaskClass maps a task type onto its retry schedule class. OCR and LLM
// work waits longer between attempts than plain uploads.
func (t Task) TaskClass() string {
	switch t.Type {
	case TaskOCR, TaskMetadata:
		return "ai"
	default:
		return "default"
	}
}

type DistributeResult struct {
	Status string            `json:"status"`
	Queued []string          `json:"queued"`
	Tasks  map[string]string `json:"tasks"`
	Errors map[string]string `json:"errors,omitempty"`
}
