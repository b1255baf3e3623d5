package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/paperflow-io/paperflow/internal/core/domain"
	"github.com/paperflow-io/paperflow/internal/core/ports"
)

// Router exposes the ingestion pipeline over HTTP. Processing itself is
// asynchronous; these endpoints enqueue work and read derived state.
type Router struct {
	ingestor    ports.FileIngestor
	distributor ports.Distributor
	auditor     ports.CredentialAuditor
	status      ports.StatusReader
	repo        ports.FileRepository
	metrics     http.Handler
	logger      *slog.Logger
}

func NewRouter(
	ingestor ports.FileIngestor,
	distributor ports.Distributor,
	auditor ports.CredentialAuditor,
	status ports.StatusReader,
	repo ports.FileRepository,
	metricsHandler http.Handler,
	logger *slog.Logger,
) *Router {
	return &Router{
		ingestor:    ingestor,
		distributor: distributor,
		auditor:     auditor,
		status:      status,
		repo:        repo,
		metrics:     metricsHandler,
		logger:      logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/files/process", rt.processFile)
	mux.HandleFunc("/v1/files/", rt.fileSubresource)
	mux.HandleFunc("/v1/credentials/check", rt.checkCredentials)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics)
	}
	return requestIDMiddleware(accessLogMiddleware(rt.logger, mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) processFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Path     string `json:"path"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path is required"})
		return
	}
	if strings.TrimSpace(req.Filename) == "" {
		req.Filename = req.Path[strings.LastIndexByte(req.Path, '/')+1:]
	}

	result, err := rt.ingestor.Ingest(r.Context(), req.Path, req.Filename)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	status := "queued"
	if result.Status == domain.IngestDuplicate {
		status = "duplicate_file"
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  status,
		"file_id": result.FileID,
		"job_id":  result.TaskID,
	})
}

// fileSubresource dispatches /v1/files/{id}/status and
// /v1/files/{id}/distribute.
func (rt *Router) fileSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/files/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	fileID, action := parts[0], parts[1]

	switch action {
	case "status":
		rt.fileStatus(w, r, fileID)
	case "distribute":
		rt.distributeFile(w, r, fileID)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func (rt *Router) fileStatus(w http.ResponseWriter, r *http.Request, fileID string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	status, entries, err := rt.status.Status(r.Context(), fileID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"file_id": fileID,
		"status":  status,
		"log":     entries,
	})
}

func (rt *Router) distributeFile(w http.ResponseWriter, r *http.Request, fileID string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	record, err := rt.repo.GetByID(r.Context(), fileID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if record.ProcessedFilePath == "" {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "file has no processed copy yet"})
		return
	}

	result, err := rt.distributor.Distribute(r.Context(), record.ProcessedFilePath, fileID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (rt *Router) checkCredentials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	summary, err := rt.auditor.Run(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
