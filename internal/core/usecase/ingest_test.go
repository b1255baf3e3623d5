package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

func TestIngestNewFile(t *testing.T) {
	repo := newRepoFake()
	plog := &plogFake{}
	store := &storeFake{hash: "abc123", size: 2048}
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, plog, store, queue, discardLogger())

	result, err := uc.Ingest(context.Background(), "/incoming/report.pdf", "report.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Status != domain.IngestNew {
		t.Fatalf("Status = %s, want %s", result.Status, domain.IngestNew)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 created record, got %d", len(repo.created))
	}
	record := repo.created[0]
	if record.ContentHash != "abc123" {
		t.Fatalf("ContentHash = %s, want abc123", record.ContentHash)
	}
	if record.MimeType != "application/pdf" {
		t.Fatalf("MimeType = %s, want application/pdf", record.MimeType)
	}
	if repo.originalPath == "" {
		t.Fatalf("expected archived original path to be recorded")
	}

	tasks := queue.byType(domain.TaskProcess)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 process task, got %d", len(tasks))
	}
	if tasks[0].FileID != result.FileID {
		t.Fatalf("task file id = %s, want %s", tasks[0].FileID, result.FileID)
	}
	if tasks[0].ID != result.TaskID {
		t.Fatalf("task id = %s, want %s", tasks[0].ID, result.TaskID)
	}
	if len(plog.byStep("ingest")) != 1 {
		t.Fatalf("expected 1 ingest log entry")
	}
}

func TestIngestDuplicateShortCircuits(t *testing.T) {
	repo := newRepoFake()
	existing := &domain.FileRecord{
		ID:                "existing-id",
		ContentHash:       "abc123",
		ProcessedFilePath: "/processed/copy.pdf",
	}
	repo.byID[existing.ID] = existing
	repo.byHash[existing.ContentHash] = existing

	plog := &plogFake{}
	store := &storeFake{hash: "abc123", size: 2048}
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, plog, store, queue, discardLogger())

	result, err := uc.Ingest(context.Background(), "/incoming/copy.pdf", "copy.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Status != domain.IngestDuplicate {
		t.Fatalf("Status = %s, want %s", result.Status, domain.IngestDuplicate)
	}
	if result.FileID != "existing-id" {
		t.Fatalf("FileID = %s, want existing-id", result.FileID)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected no published tasks for duplicate, got %d", len(queue.published))
	}
	if len(store.staged) != 0 {
		t.Fatalf("expected no staging for duplicate")
	}
}

func TestIngestResumesStalledPipeline(t *testing.T) {
	repo := newRepoFake()
	plog := &plogFake{}
	store := &storeFake{hash: "abc123", size: 2048}
	queue := &queueFake{err: context.DeadlineExceeded}
	uc := NewIngestUseCase(repo, plog, store, queue, discardLogger())

	// First attempt commits the record but the process task never
	// reaches the queue.
	if _, err := uc.Ingest(context.Background(), "/incoming/report.pdf", "report.pdf"); err == nil {
		t.Fatalf("expected error when publishing the process task fails")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected the record to persist, got %d created", len(repo.created))
	}
	stalled := repo.created[0]
	stalled.CreatedAt = time.Now().Add(-2 * resumeGrace)

	queue.err = nil
	result, err := uc.Ingest(context.Background(), "/incoming/report.pdf", "report.pdf")
	if err != nil {
		t.Fatalf("Ingest() retry error = %v", err)
	}
	if result.Status != domain.IngestDuplicate {
		t.Fatalf("Status = %s, want %s", result.Status, domain.IngestDuplicate)
	}
	if result.FileID != stalled.ID {
		t.Fatalf("FileID = %s, want %s", result.FileID, stalled.ID)
	}
	tasks := queue.byType(domain.TaskProcess)
	if len(tasks) != 1 {
		t.Fatalf("expected 1 republished process task, got %d", len(tasks))
	}
	if tasks[0].FileID != stalled.ID || tasks[0].Path != stalled.WorkingPath {
		t.Fatalf("republished task = %+v", tasks[0])
	}
	if result.TaskID != tasks[0].ID {
		t.Fatalf("TaskID = %s, want %s", result.TaskID, tasks[0].ID)
	}
}

func TestIngestDuplicateInProgressNotResumed(t *testing.T) {
	repo := newRepoFake()
	existing := &domain.FileRecord{
		ID:          "existing-id",
		ContentHash: "abc123",
		CreatedAt:   time.Now().Add(-time.Hour),
	}
	repo.byID[existing.ID] = existing
	repo.byHash[existing.ContentHash] = existing

	plog := &plogFake{entries: []domain.ProcessingLogEntry{
		{FileID: existing.ID, StepName: "ingest", Status: domain.StepSuccess},
		{FileID: existing.ID, StepName: "ocr", Status: domain.StepSuccess},
	}}
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, plog, &storeFake{hash: "abc123"}, queue, discardLogger())

	result, err := uc.Ingest(context.Background(), "/incoming/copy.pdf", "copy.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.TaskID != "" {
		t.Fatalf("TaskID = %s, want empty for an in-progress file", result.TaskID)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected no republished tasks, got %d", len(queue.published))
	}
}

// raceRepo simulates losing the check-then-insert race: the hash lookup
// misses until another writer's insert makes Create conflict.
type raceRepo struct {
	*repoFake
	winner *domain.FileRecord
}

func (r *raceRepo) Create(ctx context.Context, record *domain.FileRecord) error {
	r.byHash[r.winner.ContentHash] = r.winner
	return domain.WrapError(domain.ErrDuplicate, "create file", context.DeadlineExceeded)
}

func TestIngestResolvesInsertRace(t *testing.T) {
	winner := &domain.FileRecord{ID: "winner-id", ContentHash: "abc123", CreatedAt: time.Now()}
	repo := &raceRepo{repoFake: newRepoFake(), winner: winner}
	plog := &plogFake{}
	store := &storeFake{hash: "abc123", size: 1024}
	queue := &queueFake{}
	uc := NewIngestUseCase(repo, plog, store, queue, discardLogger())

	result, err := uc.Ingest(context.Background(), "/incoming/report.pdf", "report.pdf")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if result.Status != domain.IngestDuplicate {
		t.Fatalf("Status = %s, want %s", result.Status, domain.IngestDuplicate)
	}
	if result.FileID != "winner-id" {
		t.Fatalf("FileID = %s, want winner-id", result.FileID)
	}
	if len(queue.published) != 0 {
		t.Fatalf("expected no published tasks after lost race")
	}
}

func TestIngestHashFailure(t *testing.T) {
	repo := newRepoFake()
	store := &storeFake{hashErr: context.DeadlineExceeded}
	uc := NewIngestUseCase(repo, &plogFake{}, store, &queueFake{}, discardLogger())

	if _, err := uc.Ingest(context.Background(), "/incoming/report.pdf", "report.pdf"); err == nil {
		t.Fatalf("expected error when hashing fails")
	}
}
