package httpadapter

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paperflow-io/paperflow/internal/core/domain"
)

type ingestorStub struct {
	result *domain.IngestResult
	err    error
	path   string
	name   string
}

func (s *ingestorStub) Ingest(_ context.Context, sourcePath, originalFilename string) (*domain.IngestResult, error) {
	s.path = sourcePath
	s.name = originalFilename
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type distributorStub struct {
	result *domain.DistributeResult
	err    error
}

func (s *distributorStub) Distribute(context.Context, string, string) (*domain.DistributeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type auditorStub struct {
	summary *domain.CheckSummary
	err     error
}

func (s *auditorStub) Run(context.Context) (*domain.CheckSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.summary, nil
}

type statusStub struct {
	status  domain.ProcessingStatus
	entries []domain.ProcessingLogEntry
	err     error
}

func (s *statusStub) Status(context.Context, string) (domain.ProcessingStatus, []domain.ProcessingLogEntry, error) {
	if s.err != nil {
		return "", nil, s.err
	}
	return s.status, s.entries, nil
}

type repoStub struct {
	record *domain.FileRecord
	err    error
}

func (s *repoStub) Create(context.Context, *domain.FileRecord) error { return nil }

func (s *repoStub) GetByID(context.Context, string) (*domain.FileRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *repoStub) GetByHash(context.Context, string) (*domain.FileRecord, error) {
	return nil, domain.ErrFileNotFound
}

func (s *repoStub) UpdatePaths(context.Context, string, string, string) error { return nil }

func newTestRouter(ingestor *ingestorStub, distributor *distributorStub, auditor *auditorStub, status *statusStub, repo *repoStub) http.Handler {
	if ingestor == nil {
		ingestor = &ingestorStub{}
	}
	if distributor == nil {
		distributor = &distributorStub{}
	}
	if auditor == nil {
		auditor = &auditorStub{}
	}
	if status == nil {
		status = &statusStub{}
	}
	if repo == nil {
		repo = &repoStub{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(ingestor, distributor, auditor, status, repo, nil, logger).Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestProcessFileAccepted(t *testing.T) {
	ingestor := &ingestorStub{result: &domain.IngestResult{Status: domain.IngestNew, FileID: "file-1", TaskID: "task-1"}}
	handler := newTestRouter(ingestor, nil, nil, nil, nil)

	body := strings.NewReader(`{"path": "/incoming/report.pdf", "filename": "report.pdf"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/files/process", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["status"] != "queued" || result["file_id"] != "file-1" || result["job_id"] != "task-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestProcessFileDuplicate(t *testing.T) {
	ingestor := &ingestorStub{result: &domain.IngestResult{Status: domain.IngestDuplicate, FileID: "file-1"}}
	handler := newTestRouter(ingestor, nil, nil, nil, nil)

	body := strings.NewReader(`{"path": "/incoming/report.pdf"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/files/process", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var result map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result["status"] != "duplicate_file" || result["file_id"] != "file-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestProcessFileDerivesFilenameFromPath(t *testing.T) {
	ingestor := &ingestorStub{result: &domain.IngestResult{Status: domain.IngestNew, FileID: "file-1"}}
	handler := newTestRouter(ingestor, nil, nil, nil, nil)

	body := strings.NewReader(`{"path": "/incoming/scan_42.pdf"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/files/process", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	if ingestor.name != "scan_42.pdf" {
		t.Fatalf("filename = %q", ingestor.name)
	}
}

func TestProcessFileValidation(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/files/process", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing path: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/files/process", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method: status = %d", rec.Code)
	}
}

func TestFileStatus(t *testing.T) {
	status := &statusStub{
		status: domain.StatusProcessing,
		entries: []domain.ProcessingLogEntry{
			{FileID: "file-1", StepName: "ingest", Status: domain.StepSuccess, Timestamp: time.Now()},
		},
	}
	handler := newTestRouter(nil, nil, nil, status, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/files/file-1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		FileID string                  `json:"file_id"`
		Status domain.ProcessingStatus `json:"status"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Status != domain.StatusProcessing {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestFileStatusNotFound(t *testing.T) {
	status := &statusStub{err: domain.WrapError(domain.ErrFileNotFound, "get file", context.DeadlineExceeded)}
	handler := newTestRouter(nil, nil, nil, status, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/files/ghost/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDistributeRequiresProcessedCopy(t *testing.T) {
	repo := &repoStub{record: &domain.FileRecord{ID: "file-1"}}
	handler := newTestRouter(nil, nil, nil, nil, repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/files/file-1/distribute", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want conflict for unprocessed file", rec.Code)
	}
}

func TestDistributeAccepted(t *testing.T) {
	repo := &repoStub{record: &domain.FileRecord{ID: "file-1", ProcessedFilePath: "/processed/doc.pdf"}}
	distributor := &distributorStub{result: &domain.DistributeResult{
		Status: "Queued",
		Queued: []string{"localdir"},
		Tasks:  map[string]string{"localdir": "task-9"},
	}}
	handler := newTestRouter(nil, distributor, nil, nil, repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/files/file-1/distribute", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	var result domain.DistributeResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Queued) != 1 || result.Tasks["localdir"] != "task-9" {
		t.Fatalf("result = %+v", result)
	}
}

func TestCheckCredentials(t *testing.T) {
	auditor := &auditorStub{summary: &domain.CheckSummary{
		Checked: 2, Unconfigured: 1,
		Results: map[string]domain.ServiceResult{"ollama": {Status: domain.ServiceOK}},
	}}
	handler := newTestRouter(nil, nil, auditor, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/credentials/check", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summary domain.CheckSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Checked != 2 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestUnknownFileSubresource(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/files/file-1/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}
