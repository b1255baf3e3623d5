package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

const pollLockKey = "mail_poll"

// MailSweeper polls configured mailboxes for unread document mail. A
// distributed TTL lock keeps concurrent workers from double-ingesting the
// same messages.
type MailSweeper struct {
	lock      ports.PollLock
	cache     ports.EmailCache
	mailboxes []ports.Mailbox
	ingestor  ports.FileIngestor
	store     ports.DocumentStore
	queue     ports.TaskQueue
	logger    *slog.Logger

	lockTTL      time.Duration
	lookback     time.Duration
	sentinelFlag string
}

func NewMailSweeper(
	lock ports.PollLock,
	cache ports.EmailCache,
	mailboxes []ports.Mailbox,
	ingestor ports.FileIngestor,
	store ports.DocumentStore,
	queue ports.TaskQueue,
	lockTTL time.Duration,
	lookback time.Duration,
	sentinelFlag string,
	logger *slog.Logger,
) *MailSweeper {
	return &MailSweeper{
		lock:         lock,
		cache:        cache,
		mailboxes:    mailboxes,
		ingestor:     ingestor,
		store:        store,
		queue:        queue,
		lockTTL:      lockTTL,
		lookback:     lookback,
		sentinelFlag: sentinelFlag,
		logger:       logger,
	}
}

// Sweep runs one poll cycle across all mailboxes. If another worker holds
// the lock the cycle is skipped entirely; the next tick picks it up.
func (s *MailSweeper) Sweep(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx, pollLockKey, s.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire poll lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("mail_sweep_skipped", "reason", "lock held")
		return nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), pollLockKey); err != nil {
			s.logger.Warn("poll_lock_release_failed", "error", err)
		}
	}()

	processed, err := s.cache.Load(ctx)
	if err != nil {
		return fmt.Errorf("load email cache: %w", err)
	}

	since := time.Now().UTC().Add(-s.lookback)
	for _, mailbox := range s.mailboxes {
		if err := s.sweepMailbox(ctx, mailbox, since, processed); err != nil {
			s.logger.Error("mailbox_sweep_failed", "mailbox", mailbox.Name(), "error", err)
		}
	}
	return nil
}

func (s *MailSweeper) sweepMailbox(ctx context.Context, mailbox ports.Mailbox, since time.Time, processed map[string]time.Time) error {
	defer func() {
		if err := mailbox.Close(); err != nil {
			s.logger.Warn("mailbox_close_failed", "mailbox", mailbox.Name(), "error", err)
		}
	}()

	messages, err := mailbox.FetchCandidates(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch candidates: %w", err)
	}

	for _, msg := range messages {
		if s.skipMessage(msg, processed) {
			continue
		}

		ingested, err := s.handleMessage(ctx, msg)
		if err != nil {
			s.logger.Error("mail_message_failed",
				"mailbox", mailbox.Name(), "message_id", msg.MessageID, "error", err)
			continue
		}

		// Cache every message that was handled without error, including
		// those with nothing to ingest. Otherwise a message whose
		// attachments are all disallowed would be re-examined on every
		// sweep until it ages out of the lookback window.
		now := time.Now().UTC()
		if err := s.cache.MarkProcessed(ctx, msg.MessageID, now); err != nil {
			s.logger.Error("email_cache_write_failed", "message_id", msg.MessageID, "error", err)
			continue
		}
		processed[msg.MessageID] = now

		if !ingested {
			continue
		}
		if err := mailbox.Finalize(ctx, msg.UID); err != nil {
			// Already in the cache, so a redelivered copy is skipped next
			// sweep even though the flags never landed.
			s.logger.Warn("mail_finalize_failed",
				"mailbox", mailbox.Name(), "message_id", msg.MessageID, "error", err)
		}
	}
	return nil
}

// skipMessage applies the dedup guards: no Message-ID means no safe dedup
// key, cached means already ingested, sentinel flag means a previous run
// finalized it.
func (s *MailSweeper) skipMessage(msg domain.MailMessage, processed map[string]time.Time) bool {
	if msg.MessageID == "" {
		s.logger.Warn("mail_message_skipped", "uid", msg.UID, "reason", "missing message-id")
		return true
	}
	if _, ok := processed[msg.MessageID]; ok {
		return true
	}
	for _, flag := range msg.Flags {
		if strings.EqualFold(flag, s.sentinelFlag) {
			return true
		}
	}
	return false
}

// handleMessage ingests every accepted attachment of one message. It
// reports whether at least one attachment entered the pipeline, which is
// the condition for finalizing the message on the server.
func (s *MailSweeper) handleMessage(ctx context.Context, msg domain.MailMessage) (bool, error) {
	ingested := false
	for _, att := range msg.Attachments {
		if !domain.AllowedMailMime(att.MimeType) {
			s.logger.Debug("mail_attachment_skipped",
				"message_id", msg.MessageID, "filename", att.Filename, "mime", att.MimeType)
			continue
		}

		stagedPath, err := s.store.StageBytes(att.Filename, att.Data)
		if err != nil {
			return ingested, fmt.Errorf("stage attachment %s: %w", att.Filename, err)
		}

		if att.MimeType == "application/pdf" {
			result, err := s.ingestor.Ingest(ctx, stagedPath, att.Filename)
			if err != nil {
				return ingested, fmt.Errorf("ingest attachment %s: %w", att.Filename, err)
			}
			s.logger.Info("mail_attachment_ingested",
				"message_id", msg.MessageID, "filename", att.Filename,
				"status", string(result.Status), "file_id", result.FileID)
			ingested = true
			continue
		}

		task := domain.Task{
			ID:       uuid.NewString(),
			Type:     domain.TaskConvert,
			Path:     stagedPath,
			Filename: att.Filename,
		}
		if err := s.queue.Publish(ctx, task); err != nil {
			return ingested, fmt.Errorf("publish convert task for %s: %w", att.Filename, err)
		}
		s.logger.Info("mail_attachment_queued_for_conversion",
			"message_id", msg.MessageID, "filename", att.Filename)
		ingested = true
	}
	return ingested, nil
}

// ConvertUseCase turns a staged office document into a PDF and hands it
// to the ingest gate.
type ConvertUseCase struct {
	converter ports.DocumentConverter
	store     ports.DocumentStore
	ingestor  ports.FileIngestor
	logger    *slog.Logger
}

func NewConvertUseCase(
	converter ports.DocumentConverter,
	store ports.DocumentStore,
	ingestor ports.FileIngestor,
	logger *slog.Logger,
) *ConvertUseCase {
	return &ConvertUseCase{
		converter: converter,
		store:     store,
		ingestor:  ingestor,
		logger:    logger,
	}
}

func (uc *ConvertUseCase) RunConvert(ctx context.Context, task domain.Task) error {
	data, err := os.ReadFile(task.Path)
	if err != nil {
		return fmt.Errorf("read staged document: %w", err)
	}

	pdfData, err := uc.converter.Convert(ctx, task.Filename, data)
	if err != nil {
		return fmt.Errorf("convert %s: %w", task.Filename, err)
	}

	pdfName := strings.TrimSuffix(task.Filename, filepath.Ext(task.Filename)) + ".pdf"
	stagedPath, err := uc.store.StageBytes(pdfName, pdfData)
	if err != nil {
		return fmt.Errorf("stage converted pdf: %w", err)
	}

	result, err := uc.ingestor.Ingest(ctx, stagedPath, pdfName)
	if err != nil {
		return fmt.Errorf("ingest converted pdf: %w", err)
	}
	uc.logger.Info("document_converted",
		"filename", task.Filename, "status", string(result.Status), "file_id", result.FileID)
	return nil
}
