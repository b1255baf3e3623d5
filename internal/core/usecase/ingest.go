package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// IngestUseCase is the dedup-and-ingest gate: hash, look up, and either
// short-circuit on known content or stage a new file and start the
// pipeline.
type IngestUseCase struct {
	repo   ports.FileRepository
	plog   ports.ProcessingLog
	store  ports.DocumentStore
	queue  ports.TaskQueue
	logger *slog.Logger
}

func NewIngestUseCase(
	repo ports.FileRepository,
	plog ports.ProcessingLog,
	store ports.DocumentStore,
	queue ports.TaskQueue,
	logger *slog.Logger,
) *IngestUseCase {
	return &IngestUseCase{
		repo:   repo,
		plog:   plog,
		store:  store,
		queue:  queue,
		logger: logger,
	}
}

func (uc *IngestUseCase) Ingest(ctx context.Context, sourcePath, originalFilename string) (*domain.IngestResult, error) {
	contentHash, sizeBytes, err := uc.store.HashFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("hash source file: %w", err)
	}

	if existing, err := uc.repo.GetByHash(ctx, contentHash); err == nil {
		// Terminal success, not an error: identical bytes resolve to the
		// existing record and skip every downstream stage.
		uc.logger.Info("duplicate_ingest", "file_id", existing.ID, "content_hash", contentHash)
		return &domain.IngestResult{
			Status: domain.IngestDuplicate,
			FileID: existing.ID,
			TaskID: uc.resumeStalled(ctx, existing),
		}, nil
	} else if !domain.IsKind(err, domain.ErrFileNotFound) {
		return nil, fmt.Errorf("lookup by hash: %w", err)
	}

	workingPath, err := uc.store.Stage(sourcePath, originalFilename)
	if err != nil {
		return nil, fmt.Errorf("stage working copy: %w", err)
	}

	record := &domain.FileRecord{
		ID:               uuid.NewString(),
		ContentHash:      contentHash,
		OriginalFilename: originalFilename,
		WorkingPath:      workingPath,
		SizeBytes:        sizeBytes,
		MimeType:         detectMime(sourcePath, originalFilename),
		CreatedAt:        time.Now().UTC(),
	}
	if err := uc.repo.Create(ctx, record); err != nil {
		if domain.IsKind(err, domain.ErrDuplicate) {
			// Lost the check-then-insert race; the unique constraint is
			// the backstop. Resolve to the winner's record.
			existing, lookupErr := uc.repo.GetByHash(ctx, contentHash)
			if lookupErr != nil {
				return nil, fmt.Errorf("resolve duplicate after conflict: %w", lookupErr)
			}
			return &domain.IngestResult{
				Status: domain.IngestDuplicate,
				FileID: existing.ID,
				TaskID: uc.resumeStalled(ctx, existing),
			}, nil
		}
		return nil, fmt.Errorf("create file record: %w", err)
	}

	originalPath, err := uc.store.ArchiveOriginal(record.ID, workingPath)
	if err != nil {
		return nil, fmt.Errorf("archive original: %w", err)
	}
	if err := uc.repo.UpdatePaths(ctx, record.ID, originalPath, ""); err != nil {
		return nil, fmt.Errorf("record archival path: %w", err)
	}

	task := domain.Task{
		ID:     uuid.NewString(),
		Type:   domain.TaskProcess,
		FileID: record.ID,
		Path:   workingPath,
	}
	if err := uc.plog.Append(ctx, domain.ProcessingLogEntry{
		FileID:    record.ID,
		TaskID:    task.ID,
		StepName:  "ingest",
		Status:    domain.StepSuccess,
		Message:   fmt.Sprintf("staged %s (%d bytes)", originalFilename, sizeBytes),
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("append ingest log: %w", err)
	}
	if err := uc.queue.Publish(ctx, task); err != nil {
		return nil, fmt.Errorf("publish process task: %w", err)
	}

	uc.logger.Info("file_ingested", "file_id", record.ID, "filename", originalFilename, "size_bytes", sizeBytes)
	return &domain.IngestResult{Status: domain.IngestNew, FileID: record.ID, TaskID: task.ID}, nil
}

// resumeGrace keeps a freshly created record out of resumeStalled while
// its own ingest may still be publishing the first process task.
const resumeGrace = time.Minute

// resumeStalled restarts the pipeline for a record whose ingest committed
// but whose process task never reached the queue. Such a record shows no
// step beyond "ingest" and no processed copy, and without a nudge every
// re-ingest of the same bytes would dead-end on the duplicate check.
func (uc *IngestUseCase) resumeStalled(ctx context.Context, record *domain.FileRecord) string {
	if record.ProcessedFilePath != "" || time.Since(record.CreatedAt) < resumeGrace {
		return ""
	}
	entries, err := uc.plog.ListByFileID(ctx, record.ID)
	if err != nil {
		uc.logger.Warn("stalled_pipeline_check_failed", "file_id", record.ID, "error", err)
		return ""
	}
	for _, entry := range entries {
		if entry.StepName != "ingest" {
			return ""
		}
	}

	task := domain.Task{
		ID:     uuid.NewString(),
		Type:   domain.TaskProcess,
		FileID: record.ID,
		Path:   record.WorkingPath,
	}
	if err := uc.queue.Publish(ctx, task); err != nil {
		uc.logger.Warn("stalled_pipeline_resume_failed", "file_id", record.ID, "error", err)
		return ""
	}
	uc.logger.Info("stalled_pipeline_resumed", "file_id", record.ID, "task_id", task.ID)
	return task.ID
}

func detectMime(path, originalFilename string) string {
	if byExt := mime.TypeByExtension(filepath.Ext(originalFilename)); byExt != "" {
		return byExt
	}

	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head[:n])
}
