package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/observability/metrics"
)

type retryPolicyFake struct {
	delay      time.Duration
	maxRetries int
}

func (f *retryPolicyFake) Countdown(string, int) time.Duration { return f.delay }
func (f *retryPolicyFake) MaxRetries(string) int               { return f.maxRetries }

func dispatcherFixture(queue *queueFake, plog *plogFake) *Dispatcher {
	policy := &retryPolicyFake{delay: 42 * time.Second, maxRetries: 3}
	return NewDispatcher(queue, plog, policy, metrics.NewWorkerMetrics("test"), discardLogger())
}

func TestDispatcherReschedulesTemporaryFailure(t *testing.T) {
	queue := &queueFake{}
	plog := &plogFake{}
	dispatcher := dispatcherFixture(queue, plog)

	handler := dispatcher.Wrap(func(context.Context, domain.Task) error {
		return domain.WrapError(domain.ErrTemporary, "ocr", errors.New("429"))
	})

	task := domain.Task{ID: "task-1", Type: domain.TaskOCR, FileID: "file-1", Attempt: 0}
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("expected nil from rescheduled task, got %v", err)
	}

	if len(queue.delayed) != 1 {
		t.Fatalf("expected 1 delayed republish, got %d", len(queue.delayed))
	}
	if queue.delayed[0].Attempt != 1 {
		t.Fatalf("Attempt = %d, want 1", queue.delayed[0].Attempt)
	}
	if queue.delays[0] != 42*time.Second {
		t.Fatalf("delay = %s, want 42s", queue.delays[0])
	}
	if len(plog.entries) != 0 {
		t.Fatalf("expected no failure entry while retries remain")
	}
}

func TestDispatcherExhaustedRetriesRecordFailure(t *testing.T) {
	queue := &queueFake{}
	plog := &plogFake{}
	dispatcher := dispatcherFixture(queue, plog)

	handler := dispatcher.Wrap(func(context.Context, domain.Task) error {
		return domain.WrapError(domain.ErrTemporary, "ocr", errors.New("429"))
	})

	task := domain.Task{ID: "task-1", Type: domain.TaskOCR, FileID: "file-1", Attempt: 3}
	if err := handler(context.Background(), task); err == nil {
		t.Fatalf("expected terminal error after exhausted retries")
	}

	if len(queue.delayed) != 0 {
		t.Fatalf("expected no republish after exhausted retries")
	}
	failures := plog.byStep("ocr")
	if len(failures) != 1 || failures[0].Status != domain.StepFailure {
		t.Fatalf("expected one failure entry, got %+v", failures)
	}
}

func TestDispatcherPermanentFailureSkipsRetry(t *testing.T) {
	queue := &queueFake{}
	plog := &plogFake{}
	dispatcher := dispatcherFixture(queue, plog)

	handler := dispatcher.Wrap(func(context.Context, domain.Task) error {
		return errors.New("malformed document")
	})

	task := domain.Task{ID: "task-1", Type: domain.TaskProcess, FileID: "file-1"}
	if err := handler(context.Background(), task); err == nil {
		t.Fatalf("expected permanent error surfaced")
	}
	if len(queue.delayed) != 0 {
		t.Fatalf("expected no retry for permanent failure")
	}
}

func TestDispatcherSuccessPassesThrough(t *testing.T) {
	queue := &queueFake{}
	plog := &plogFake{}
	dispatcher := dispatcherFixture(queue, plog)

	calls := 0
	handler := dispatcher.Wrap(func(context.Context, domain.Task) error {
		calls++
		return nil
	})

	task := domain.Task{ID: "task-1", Type: domain.TaskProcess, FileID: "file-1"}
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if len(plog.entries) != 0 || len(queue.delayed) != 0 {
		t.Fatalf("expected clean pass-through")
	}
}

func TestDispatcherSkipsFailureLogWithoutFileID(t *testing.T) {
	queue := &queueFake{}
	plog := &plogFake{}
	dispatcher := dispatcherFixture(queue, plog)

	handler := dispatcher.Wrap(func(context.Context, domain.Task) error {
		return errors.New("conversion failed")
	})

	task := domain.Task{ID: "task-1", Type: domain.TaskConvert, Filename: "letter.docx"}
	if err := handler(context.Background(), task); err == nil {
		t.Fatalf("expected error")
	}
	if len(plog.entries) != 0 {
		t.Fatalf("expected no log entry when the task has no file yet")
	}
}
