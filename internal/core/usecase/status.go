package usecase

import (
	"context"
	"fmt"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// StatusUseCase derives a file's overall state from its audit trail.
type StatusUseCase struct {
	repo ports.FileRepository
	plog ports.ProcessingLog
}

func NewStatusUseCase(repo ports.FileRepository, plog ports.ProcessingLog) *StatusUseCase {
	return &StatusUseCase{repo: repo, plog: plog}
}

func (uc *StatusUseCase) Status(ctx context.Context, fileID string) (domain.ProcessingStatus, []domain.ProcessingLogEntry, error) {
	if _, err := uc.repo.GetByID(ctx, fileID); err != nil {
		return "", nil, fmt.Errorf("load file record: %w", err)
	}
	entries, err := uc.plog.ListByFileID(ctx, fileID)
	if err != nil {
		return "", nil, fmt.Errorf("list processing log: %w", err)
	}
	return domain.DeriveStatus(entries), entries, nil
}
