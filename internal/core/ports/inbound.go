package ports

import (
	"context"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

// FileIngestor is the inbound contract for the dedup-and-ingest gate.
type FileIngestor interface {
	Ingest(ctx context.Context, sourcePath, originalFilename string) (*domain.IngestResult, error)
}

// FileProcessor runs the routing stage for one staged file.
type FileProcessor interface {
	ProcessTask(ctx context.Context, task domain.Task) error
}

// Distributor fans a finished document out to every configured destination.
type Distributor interface {
	Distribute(ctx context.Context, filePath, fileID string) (*domain.DistributeResult, error)
}

// CredentialAuditor runs one health sweep over all monitored services.
type CredentialAuditor interface {
	Run(ctx context.Context) (*domain.CheckSummary, error)
}

// MailboxSweeper polls all configured mailboxes once.
type MailboxSweeper interface {
	Sweep(ctx context.Context) error
}

// StatusReader exposes the derived processing status of a file.
type StatusReader interface {
	Status(ctx context.Context, fileID string) (domain.ProcessingStatus, []domain.ProcessingLogEntry, error)
}
