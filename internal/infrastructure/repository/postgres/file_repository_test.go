package postgres

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

func TestCreateInsertsFile(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewFileRepository(db)

	mock.ExpectExec("INSERT INTO files").
		WillReturnResult(sqlmock.NewResult(0, 1))

	record := &domain.FileRecord{
		ID:               "file-1",
		ContentHash:      "abc",
		OriginalFilename: "doc.pdf",
		WorkingPath:      "/staging/doc.pdf",
		SizeBytes:        10,
		MimeType:         "application/pdf",
		CreatedAt:        time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateConflictReturnsDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewFileRepository(db)

	// ON CONFLICT DO NOTHING reports zero affected rows for a dup.
	mock.ExpectExec("INSERT INTO files").
		WillReturnResult(sqlmock.NewResult(0, 0))

	record := &domain.FileRecord{ID: "file-1", ContentHash: "abc", CreatedAt: time.Now().UTC()}
	err = repo.Create(context.Background(), record)
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
	if !domain.IsKind(err, domain.ErrDuplicate) {
		t.Fatalf("expected duplicate kind, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewFileRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM files").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "content_hash", "original_filename", "working_path",
			"size_bytes", "mime_type", "original_file_path", "processed_file_path", "created_at",
		}))

	_, err = repo.GetByID(context.Background(), "ghost")
	if err == nil {
		t.Fatalf("expected error for missing row")
	}
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected not-found kind, got %v", err)
	}
}

func TestGetByHashLowercasesInput(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewFileRepository(db)

	created := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM files").
		WithArgs("abcdef").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "content_hash", "original_filename", "working_path",
			"size_bytes", "mime_type", "original_file_path", "processed_file_path", "created_at",
		}).AddRow("file-1", "abcdef", "doc.pdf", "/staging/doc.pdf",
			int64(10), "application/pdf", "", "", created))

	record, err := repo.GetByHash(context.Background(), "ABCDEF")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if record.ID != "file-1" {
		t.Fatalf("record = %+v", record)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdatePaths(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	repo := NewFileRepository(db)

	mock.ExpectExec("UPDATE files").
		WithArgs("file-1", "/originals/file-1.pdf", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdatePaths(context.Background(), "file-1", "/originals/file-1.pdf", ""); err != nil {
		t.Fatalf("UpdatePaths() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
