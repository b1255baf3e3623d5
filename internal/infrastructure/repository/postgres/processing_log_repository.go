package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

type ProcessingLogRepository struct {
	db *sql.DB
}

func NewProcessingLogRepository(db *sql.DB) *ProcessingLogRepository {
	return &ProcessingLogRepository{db: db}
}

// Append writes one audit entry. The table is append-only; nothing here
// updates or deletes.
func (r *ProcessingLogRepository) Append(ctx context.Context, entry domain.ProcessingLogEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processing_log (file_id, task_id, step_name, status, message, ts)
VALUES ($1,$2,$3,$4,$5,$6)
`, entry.FileID, entry.TaskID, entry.StepName, string(entry.Status), entry.Message, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert processing log entry: %w", err)
	}
	return nil
}

func (r *ProcessingLogRepository) ListByFileID(ctx context.Context, fileID string) ([]domain.ProcessingLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, file_id, task_id, step_name, status, message, ts
FROM processing_log
WHERE file_id = $1
ORDER BY ts ASC, id ASC
`, fileID)
	if err != nil {
		return nil, fmt.Errorf("select processing log: %w", err)
	}
	defer rows.Close()

	var entries []domain.ProcessingLogEntry
	for rows.Next() {
		var entry domain.ProcessingLogEntry
		var status string
		if err := rows.Scan(&entry.ID, &entry.FileID, &entry.TaskID, &entry.StepName, &status, &entry.Message, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan processing log entry: %w", err)
		}
		entry.Status = domain.StepStatus(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate processing log: %w", err)
	}
	return entries, nil
}
