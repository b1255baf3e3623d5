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

// DistributeUseCase fans a processed document out to every configured
// destination. Each destination gets its own upload task so that one
// target's outage never blocks the others.
type DistributeUseCase struct {
	plog         ports.ProcessingLog
	queue        ports.TaskQueue
	destinations []ports.Destination
	statuses     ports.DestinationStatusProvider
	logger       *slog.Logger
}

func NewDistributeUseCase(
	plog ports.ProcessingLog,
	queue ports.TaskQueue,
	destinations []ports.Destination,
	statuses ports.DestinationStatusProvider,
	logger *slog.Logger,
) *DistributeUseCase {
	return &DistributeUseCase{
		plog:         plog,
		queue:        queue,
		destinations: destinations,
		statuses:     statuses,
		logger:       logger,
	}
}

// Distribute enqueues one upload task per configured destination. A
// dispatch failure for one destination is recorded and the loop keeps
// going; the result reports both sides.
func (uc *DistributeUseCase) Distribute(ctx context.Context, filePath, fileID string) (*domain.DistributeResult, error) {
	configured := uc.configuredSet(ctx)

	result := &domain.DistributeResult{
		Status: "Queued",
		Queued: []string{},
		Tasks:  map[string]string{},
		Errors: map[string]string{},
	}

	for _, dest := range uc.destinations {
		name := dest.Name()
		if on, known := configured[name]; known && !on {
			continue
		}
		if !dest.IsConfigured() {
			continue
		}

		task := domain.Task{
			ID:          uuid.NewString(),
			Type:        domain.TaskUpload,
			FileID:      fileID,
			Path:        filePath,
			Destination: name,
		}
		if err := uc.enqueueUpload(ctx, task); err != nil {
			uc.logger.Error("upload_dispatch_failed", "destination", name, "file_id", fileID, "error", err)
			result.Errors[name] = err.Error()
			continue
		}
		result.Queued = append(result.Queued, name)
		result.Tasks[name] = task.ID
	}

	if len(result.Errors) == 0 {
		result.Errors = nil
	}
	return result, nil
}

// enqueueUpload isolates one destination's dispatch so a panicking queue
// path cannot take the whole fan-out down with it.
func (uc *DistributeUseCase) enqueueUpload(ctx context.Context, task domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch panic: %v", r)
		}
	}()
	return uc.queue.Publish(ctx, task)
}

// configuredSet consults the centralized status check. When it fails the
// distributor falls back to each destination's own predicate by returning
// an empty map.
func (uc *DistributeUseCase) configuredSet(ctx context.Context) map[string]bool {
	if uc.statuses == nil {
		return map[string]bool{}
	}
	statuses, err := uc.statuses.Statuses(ctx)
	if err != nil {
		uc.logger.Warn("destination_status_check_failed", "error", err)
		return map[string]bool{}
	}
	return statuses
}

// RunDistribute is the queue-facing entry for the fan-out stage.
func (uc *DistributeUseCase) RunDistribute(ctx context.Context, task domain.Task) error {
	result, err := uc.Distribute(ctx, task.Path, task.FileID)
	if err != nil {
		return fmt.Errorf("distribute: %w", err)
	}
	uc.logger.Info("distribution_queued",
		"file_id", task.FileID, "queued", result.Queued, "errors", len(result.Errors))
	return uc.logStep(ctx, task, "distribute", domain.StepSuccess,
		fmt.Sprintf("queued %d upload(s)", len(result.Queued)))
}

// RunUpload handles one upload task end to end for a single destination.
func (uc *DistributeUseCase) RunUpload(ctx context.Context, task domain.Task) error {
	step := "upload:" + task.Destination
	if err := uc.logStep(ctx, task, step, domain.StepInProgress, ""); err != nil {
		return err
	}

	dest := uc.findDestination(task.Destination)
	if dest == nil {
		return domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("unknown destination %q", task.Destination))
	}

	if err := dest.Upload(ctx, task.Path, task.FileID); err != nil {
		return fmt.Errorf("upload to %s: %w", task.Destination, err)
	}
	return uc.logStep(ctx, task, step, domain.StepSuccess, "")
}

func (uc *DistributeUseCase) findDestination(name string) ports.Destination {
	for _, dest := range uc.destinations {
		if dest.Name() == name {
			return dest
		}
	}
	return nil
}

func (uc *DistributeUseCase) logStep(ctx context.Context, task domain.Task, step string, status domain.StepStatus, message string) error {
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
