package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// ProcessUseCase runs the routing stage: extract text locally, classify
// its source, and decide between metadata extraction and cloud OCR.
type ProcessUseCase struct {
	repo      ports.FileRepository
	plog      ports.ProcessingLog
	extractor ports.TextExtractor
	inspector ports.SourceInspector
	assessor  *Assessor
	ocr       ports.OCRProvider
	queue     ports.TaskQueue
	logger    *slog.Logger
}

func NewProcessUseCase(
	repo ports.FileRepository,
	plog ports.ProcessingLog,
	extractor ports.TextExtractor,
	inspector ports.SourceInspector,
	assessor *Assessor,
	ocr ports.OCRProvider,
	queue ports.TaskQueue,
	logger *slog.Logger,
) *ProcessUseCase {
	return &ProcessUseCase{
		repo:      repo,
		plog:      plog,
		extractor: extractor,
		inspector: inspector,
		assessor:  assessor,
		ocr:       ocr,
		queue:     queue,
		logger:    logger,
	}
}

// ProcessTask routes one staged file. DIGITAL text is trusted
// unconditionally; everything else is scored, and a failing score sends
// the document to cloud OCR with its original text carried forward for
// comparison.
func (uc *ProcessUseCase) ProcessTask(ctx context.Context, task domain.Task) error {
	if err := uc.logStep(ctx, task, "route", domain.StepInProgress, ""); err != nil {
		return err
	}

	record, err := uc.repo.GetByID(ctx, task.FileID)
	if err != nil {
		return fmt.Errorf("load file record: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, record.WorkingPath, record.MimeType)
	if err != nil && !domain.IsKind(err, domain.ErrUnsupported) {
		uc.logger.Warn("local_extraction_failed", "file_id", record.ID, "error", err)
		text = ""
	}

	source := uc.inspector.DetectTextSource(record.WorkingPath)
	if source == domain.SourceDigital {
		// Digitally authored text is trusted no matter how it reads.
		if err := uc.logStep(ctx, task, "route", domain.StepSuccess, "digital source, quality check bypassed"); err != nil {
			return err
		}
		return uc.enqueueMetadata(ctx, record, text)
	}

	verdict := uc.assessor.Evaluate(ctx, text)
	uc.logger.Info("quality_verdict",
		"file_id", record.ID,
		"source", string(source),
		"score", verdict.Score,
		"accepted", verdict.IsGoodQuality,
		"issues", verdict.Issues,
	)

	if verdict.IsGoodQuality {
		if err := uc.logStep(ctx, task, "route", domain.StepSuccess,
			fmt.Sprintf("quality accepted (score %d)", verdict.Score)); err != nil {
			return err
		}
		return uc.enqueueMetadata(ctx, record, text)
	}

	ocrTask := domain.Task{
		ID:     uuid.NewString(),
		Type:   domain.TaskOCR,
		FileID: record.ID,
		Path:   record.WorkingPath,
		Text:   text,
	}
	if err := uc.queue.Publish(ctx, ocrTask); err != nil {
		return fmt.Errorf("publish ocr task: %w", err)
	}
	return uc.logStep(ctx, task, "route", domain.StepSuccess,
		fmt.Sprintf("quality rejected (score %d), routed to ocr", verdict.Score))
}

// RunOCR re-extracts text through the cloud provider and keeps whichever
// version the comparator prefers.
func (uc *ProcessUseCase) RunOCR(ctx context.Context, task domain.Task) error {
	if err := uc.logStep(ctx, task, "ocr", domain.StepInProgress, ""); err != nil {
		return err
	}

	record, err := uc.repo.GetByID(ctx, task.FileID)
	if err != nil {
		return fmt.Errorf("load file record: %w", err)
	}

	ocrText, err := uc.ocr.Recognize(ctx, record.WorkingPath)
	if err != nil {
		return fmt.Errorf("cloud ocr: %w", err)
	}

	chosen := ocrText
	if task.Text != "" {
		comparison := uc.assessor.Compare(ctx, task.Text, ocrText)
		if comparison.Preferred == domain.PreferOriginal {
			chosen = task.Text
		}
		uc.logger.Info("ocr_comparison",
			"file_id", record.ID,
			"preferred", string(comparison.Preferred),
			"original_score", comparison.OriginalScore,
			"ocr_score", comparison.OCRScore,
		)
	}

	if err := uc.logStep(ctx, task, "ocr", domain.StepSuccess,
		fmt.Sprintf("extracted %d chars", len(chosen))); err != nil {
		return err
	}
	return uc.enqueueMetadata(ctx, record, chosen)
}

func (uc *ProcessUseCase) enqueueMetadata(ctx context.Context, record *domain.FileRecord, text string) error {
	next := domain.Task{
		ID:     uuid.NewString(),
		Type:   domain.TaskMetadata,
		FileID: record.ID,
		Path:   record.WorkingPath,
		Text:   text,
	}
	if err := uc.queue.Publish(ctx, next); err != nil {
		return fmt.Errorf("publish metadata task: %w", err)
	}
	return nil
}

func (uc *ProcessUseCase) logStep(ctx context.Context, task domain.Task, step string, status domain.StepStatus, message string) error {
	err := uc.plog.Append(ctx, domain.ProcessingLogEntry{
		FileID:    task.FileID,
		TaskID:    task.ID,
		StepName:  step,
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("append %s log: %w", step, err)
	}
	return nil
}
