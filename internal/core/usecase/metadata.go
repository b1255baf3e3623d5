package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// MetadataUseCase extracts structured metadata from the chosen text,
// embeds it into the document, and writes the processed copy plus its
// sidecar.
type MetadataUseCase struct {
	repo      ports.FileRepository
	plog      ports.ProcessingLog
	extractor ports.MetadataExtractor
	writer    ports.MetadataWriter
	store     ports.DocumentStore
	queue     ports.TaskQueue
	logger    *slog.Logger
}

func NewMetadataUseCase(
	repo ports.FileRepository,
	plog ports.ProcessingLog,
	extractor ports.MetadataExtractor,
	writer ports.MetadataWriter,
	store ports.DocumentStore,
	queue ports.TaskQueue,
	logger *slog.Logger,
) *MetadataUseCase {
	return &MetadataUseCase{
		repo:      repo,
		plog:      plog,
		extractor: extractor,
		writer:    writer,
		store:     store,
		queue:     queue,
		logger:    logger,
	}
}

// RunMetadata handles one metadata task. Provider outages propagate so
// the queue can retry; a malformed extraction result degrades to empty
// metadata rather than stalling the document.
func (uc *MetadataUseCase) RunMetadata(ctx context.Context, task domain.Task) error {
	if err := uc.appendLog(ctx, task, domain.StepInProgress, ""); err != nil {
		return err
	}

	record, err := uc.repo.GetByID(ctx, task.FileID)
	if err != nil {
		return fmt.Errorf("load file record: %w", err)
	}

	meta, err := uc.extractor.ExtractMetadata(ctx, task.Text)
	if err != nil {
		if domain.IsKind(err, domain.ErrTemporary) {
			return fmt.Errorf("extract metadata: %w", err)
		}
		uc.logger.Warn("metadata_extraction_degraded", "file_id", record.ID, "error", err)
		meta = domain.DocumentMetadata{}
	}

	targetName := uc.targetName(record, meta)
	processedPath, err := uc.writer.Embed(ctx, record.WorkingPath, meta, targetName)
	if err != nil {
		return fmt.Errorf("embed metadata: %w", err)
	}

	sidecar := domain.Sidecar{
		DocumentMetadata:  meta,
		OriginalFilePath:  record.OriginalFilePath,
		ProcessedFilePath: processedPath,
	}
	if err := uc.store.WriteSidecar(processedPath, sidecar); err != nil {
		return fmt.Errorf("write sidecar: %w", err)
	}
	if err := uc.repo.UpdatePaths(ctx, record.ID, "", processedPath); err != nil {
		return fmt.Errorf("record processed path: %w", err)
	}

	if err := uc.appendLog(ctx, task, domain.StepSuccess,
		fmt.Sprintf("processed as %s", filepath.Base(processedPath))); err != nil {
		return err
	}

	next := domain.Task{
		ID:     uuid.NewString(),
		Type:   domain.TaskDistribute,
		FileID: record.ID,
		Path:   processedPath,
	}
	if err := uc.queue.Publish(ctx, next); err != nil {
		return fmt.Errorf("publish distribute task: %w", err)
	}
	return nil
}

// targetName picks the processed file's base name. An extracted name that
// fails sanitization falls back to the stored original, and the result is
// always forced onto a .pdf extension.
func (uc *MetadataUseCase) targetName(record *domain.FileRecord, meta domain.DocumentMetadata) string {
	name := domain.SafeFilename(meta.SuggestedFilename)
	if name == "" {
		if meta.SuggestedFilename != "" {
			uc.logger.Warn("suggested_filename_rejected",
				"file_id", record.ID, "suggested", meta.SuggestedFilename)
		}
		name = record.OriginalFilename
	}

	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = record.ID
	}
	return base + ".pdf"
}

func (uc *MetadataUseCase) appendLog(ctx context.Context, task domain.Task, status domain.StepStatus, message string) error {
	err := uc.plog.Append(ctx, domain.ProcessingLogEntry{
		FileID:    task.FileID,
		TaskID:    task.ID,
		StepName:  "metadata",
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append metadata log: %w", err)
	}
	return nil
}
