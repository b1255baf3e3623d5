package ports

import (
	"context"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// FileRepository persists file records keyed by content hash.
type FileRepository interface {
	Create(ctx context.Context, record *domain.FileRecord) error
	GetByID(ctx context.Context, id string) (*domain.FileRecord, error)
	GetByHash(ctx context.Context, contentHash string) (*domain.FileRecord, error)
	UpdatePaths(ctx context.Context, id, originalPath, processedPath string) error
}

// ProcessingLog is the append-only audit trail for pipeline steps.
type ProcessingLog interface {
	Append(ctx context.Context, entry domain.ProcessingLogEntry) error
	ListByFileID(ctx context.Context, fileID string) ([]domain.ProcessingLogEntry, error)
}

// TaskQueue carries task envelopes between pipeline stages.
type TaskQueue interface {
	Publish(ctx context.Context, task domain.Task) error
	PublishAfter(ctx context.Context, task domain.Task, delay time.Duration) error
	Subscribe(ctx context.Context, taskType domain.TaskType, handler func(context.Context, domain.Task) error) error
}

// DocumentStore manages the staging, originals, and processed areas on disk.
type DocumentStore interface {
	HashFile(path string) (string, int64, error)
	Stage(sourcePath, originalFilename string) (string, error)
	StageBytes(originalFilename string, data []byte) (string, error)
	ArchiveOriginal(fileID, workingPath string) (string, error)
	ProcessedPath(name string) (string, error)
	WriteSidecar(processedPath string, sidecar domain.Sidecar) error
}

// QualityRater asks the text-completion provider for a raw quality verdict
// or a head-to-head comparison. Threshold and override decisions stay in
// the use case.
type QualityRater interface {
	RateText(ctx context.Context, text string) (domain.QualityVerdict, error)
	CompareTexts(ctx context.Context, original, reocr string) (domain.ComparisonVerdict, error)
}

// MetadataExtractor turns raw text into structured document metadata.
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, text string) (domain.DocumentMetadata, error)
}

// OCRProvider extracts text from a document via cloud OCR.
type OCRProvider interface {
	Recognize(ctx context.Context, filePath string) (string, error)
}

// TextExtractor extracts text locally from a staged file.
type TextExtractor interface {
	Extract(ctx context.Context, path, mimeType string) (string, error)
}

// SourceInspector classifies where a document's text layer came from.
type SourceInspector interface {
	DetectTextSource(path string) domain.TextSource
}

// MetadataWriter embeds accepted metadata into the document and produces
// the processed copy under a collision-safe name.
type MetadataWriter interface {
	Embed(ctx context.Context, workingPath string, meta domain.DocumentMetadata, targetName string) (string, error)
}

// Destination is one configured storage target. Upload is an opaque
// provider operation; the distributor never looks inside it.
type Destination interface {
	Name() string
	IsConfigured() bool
	Upload(ctx context.Context, filePath, fileID string) error
}

// DestinationStatusProvider is the centralized configuration check. A
// failure here makes the distributor fall back to each destination's own
// predicate.
type DestinationStatusProvider interface {
	Statuses(ctx context.Context) (map[string]bool, error)
}

// CredentialChecker exercises one provider's credentials.
type CredentialChecker interface {
	Name() string
	Configured() bool
	Check(ctx context.Context) error
}

// CredentialStateStore persists the per-service failure map between runs.
type CredentialStateStore interface {
	Load(ctx context.Context) (map[string]domain.ServiceState, error)
	Save(ctx context.Context, states map[string]domain.ServiceState) error
}

// Notifier delivers operator-facing alerts.
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// PollLock is a distributed TTL lock. Acquire reports false when another
// holder owns the key; the TTL bounds stale locks from crashed holders.
type PollLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EmailCache guarantees at-most-once ingestion per message within the
// retention window. Load prunes entries older than the window.
type EmailCache interface {
	Load(ctx context.Context) (map[string]time.Time, error)
	MarkProcessed(ctx context.Context, messageID string, seenAt time.Time) error
}

// Mailbox is one configured IMAP account. FetchCandidates returns unread
// recent messages with decoded attachments; Finalize marks a message
// processed per the mailbox configuration.
type Mailbox interface {
	Name() string
	FetchCandidates(ctx context.Context, since time.Time) ([]domain.MailMessage, error)
	Finalize(ctx context.Context, uid uint32) error
	Close() error
}

// DocumentConverter converts a non-PDF office document to PDF.
type DocumentConverter interface {
	Convert(ctx context.Context, filename string, data []byte) ([]byte, error)
}

// RetryPolicy computes queue-level redelivery delays per task class.
type RetryPolicy interface {
	Countdown(taskClass string, retryIndex int) time.Duration
	MaxRetries(taskClass string) int
}
