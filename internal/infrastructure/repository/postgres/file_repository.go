package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *FileRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026090101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL UNIQUE,
	original_filename TEXT NOT NULL,
	working_path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	mime_type TEXT NOT NULL,
	original_file_path TEXT NOT NULL DEFAULT '',
	processed_file_path TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS processing_log (
	id BIGSERIAL PRIMARY KEY,
	file_id TEXT NOT NULL REFERENCES files(id),
	task_id TEXT NOT NULL,
	step_name TEXT NOT NULL,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	ts TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processing_log_file_id ON processing_log(file_id);

CREATE TABLE IF NOT EXISTS credential_state (
	service TEXT PRIMARY KEY,
	fail_count INTEGER NOT NULL DEFAULT 0,
	last_notified TIMESTAMPTZ,
	recovered BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS processed_emails (
	message_id TEXT PRIMARY KEY,
	seen_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS poll_locks (
	lock_key TEXT PRIMARY KEY,
	expires_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Create inserts a new file record. The unique constraint on content_hash
// is the final guarantor against concurrent duplicate ingestion; a conflict
// surfaces as ErrDuplicate so the gate can resolve to the existing row.
func (r *FileRepository) Create(ctx context.Context, record *domain.FileRecord) error {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO files (
	id, content_hash, original_filename, working_path, size_bytes, mime_type, original_file_path, processed_file_path, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (content_hash) DO NOTHING
`,
		record.ID, record.ContentHash, record.OriginalFilename, record.WorkingPath,
		record.SizeBytes, record.MimeType, record.OriginalFilePath, record.ProcessedFilePath, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert file rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDuplicate, "insert file", fmt.Errorf("content_hash %s already present", record.ContentHash))
	}
	return nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.FileRecord, error) {
	return r.getByColumn(ctx, "id", id)
}

func (r *FileRepository) GetByHash(ctx context.Context, contentHash string) (*domain.FileRecord, error) {
	return r.getByColumn(ctx, "content_hash", strings.ToLower(contentHash))
}

func (r *FileRepository) getByColumn(ctx context.Context, column, value string) (*domain.FileRecord, error) {
	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT id, content_hash, original_filename, working_path, size_bytes, mime_type, original_file_path, processed_file_path, created_at
FROM files
WHERE %s = $1
`, column), value)

	var record domain.FileRecord
	err := row.Scan(
		&record.ID, &record.ContentHash, &record.OriginalFilename, &record.WorkingPath,
		&record.SizeBytes, &record.MimeType, &record.OriginalFilePath, &record.ProcessedFilePath, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrFileNotFound, "select file", fmt.Errorf("%s=%s", column, value))
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return &record, nil
}

func (r *FileRepository) UpdatePaths(ctx context.Context, id, originalPath, processedPath string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE files
SET original_file_path = CASE WHEN $2 = '' THEN original_file_path ELSE $2 END,
    processed_file_path = CASE WHEN $3 = '' THEN processed_file_path ELSE $3 END
WHERE id = $1
`, id, originalPath, processedPath)
	if err != nil {
		return fmt.Errorf("update file paths: %w", err)
	}
	return nil
}
