package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
	"github.com/paperflow-io/paperflow/internal/observability/metrics"
)

// Dispatcher wraps task handlers with the retry policy. A handler error
// wrapped in a temporary kind is republished with a growing delay; the
// rest, and exhausted retries, are recorded as step failures.
type Dispatcher struct {
	queue   ports.TaskQueue
	plog    ports.ProcessingLog
	retry   ports.RetryPolicy
	metrics *metrics.WorkerMetrics
	logger  *slog.Logger
}

func NewDispatcher(
	queue ports.TaskQueue,
	plog ports.ProcessingLog,
	retry ports.RetryPolicy,
	workerMetrics *metrics.WorkerMetrics,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		plog:    plog,
		retry:   retry,
		metrics: workerMetrics,
		logger:  logger,
	}
}

// Wrap adapts a task handler for queue subscription, adding metrics,
// retry scheduling, and terminal failure logging.
func (d *Dispatcher) Wrap(handler func(context.Context, domain.Task) error) func(context.Context, domain.Task) error {
	return func(ctx context.Context, task domain.Task) error {
		d.metrics.StartTask()
		started := time.Now()

		err := handler(ctx, task)
		d.metrics.FinishTask(string(task.Type), time.Since(started), err)
		if err == nil {
			return nil
		}

		class := task.TaskClass()
		if domain.IsKind(err, domain.ErrTemporary) && task.Attempt < d.retry.MaxRetries(class) {
			delay := d.retry.Countdown(class, task.Attempt)
			task.Attempt++
			d.logger.Warn("task_retry_scheduled",
				"task_id", task.ID, "type", string(task.Type),
				"attempt", task.Attempt, "delay", delay.String(), "error", err)
			if pubErr := d.queue.PublishAfter(ctx, task, delay); pubErr != nil {
				return fmt.Errorf("schedule retry: %w", pubErr)
			}
			d.metrics.CountRetry(string(task.Type))
			return nil
		}

		d.logger.Error("task_failed",
			"task_id", task.ID, "type", string(task.Type), "attempt", task.Attempt, "error", err)
		if task.FileID != "" {
			logErr := d.plog.Append(ctx, domain.ProcessingLogEntry{
				FileID:    task.FileID,
				TaskID:    task.ID,
				StepName:  string(task.Type),
				Status:    domain.StepFailure,
				Message:   err.Error(),
				Timestamp: time.Now().UTC(),
			})
			if logErr != nil {
				d.logger.Error("failure_log_append_failed", "task_id", task.ID, "error", logErr)
			}
		}
		return err
	}
}
