// Package chi is the HTTP transport: request decoding, sentinel-to-status
// mapping, and JSON responses.
package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/session"
	askuc "github.com/kailas-cloud/docqa/internal/usecase/ask"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
)

// ErrorCode is the stable machine-readable error code in error responses.
type ErrorCode string

const (
	CodeBadRequest          ErrorCode = "bad_request"
	CodeValidationFailed    ErrorCode = "validation_failed"
	CodeDocumentNotFound    ErrorCode = "document_not_found"
	CodeUnsupportedFormat   ErrorCode = "unsupported_format"
	CodeExtractionFailed    ErrorCode = "extraction_failed"
	CodeEmptyDocument       ErrorCode = "empty_document"
	CodeBuildInProgress     ErrorCode = "build_in_progress"
	CodeDocumentTooLarge    ErrorCode = "document_too_large"
	CodeNoRelevantContext   ErrorCode = "no_relevant_context"
	CodeEmbeddingProvider   ErrorCode = "embedding_provider_error"
	CodeGenerationProvider  ErrorCode = "generation_provider_error"
	CodeDocumentUnavailable ErrorCode = "document_unavailable"
	CodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server routes document upload and question answering over HTTP.
type Server struct {
	sessions       *session.Manager
	ask            *askuc.Service
	health         *healthuc.Service
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	sessions *session.Manager,
	ask *askuc.Service,
	health *healthuc.Service,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		sessions:       sessions,
		ask:            ask,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	// Order matters: ErrEmptyDocument wraps ErrExtraction and ErrSessionFailed
	// wraps build causes, so the specific sentinels come first.
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrEmptyDocument, http.StatusUnprocessableEntity, CodeEmptyDocument),
		sentinelHandler(domain.ErrExtraction, http.StatusUnprocessableEntity, CodeExtractionFailed),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrBuildInProgress, http.StatusConflict, CodeBuildInProgress),
		sentinelHandler(domain.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, CodeDocumentTooLarge),
		sentinelHandler(domain.ErrNoRelevantContext, http.StatusUnprocessableEntity, CodeNoRelevantContext),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingProvider),
		sentinelHandler(domain.ErrGenerationProvider, http.StatusBadGateway, CodeGenerationProvider),
		sentinelHandler(domain.ErrSessionFailed, http.StatusConflict, CodeDocumentUnavailable),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/upload", s.Upload)
	r.Post("/analyze", s.Analyze)
	r.Get("/documents", s.ListDocuments)
	r.Get("/documents/{id}", s.GetDocument)
	r.Delete("/documents/{id}", s.DeleteDocument)
	r.Get("/health", s.Health)
	r.Get("/metrics", s.Metrics)
}

// UploadResponse is the JSON body for a successful upload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Chunks     int    `json:"chunks"`
}

// Upload handles POST /upload: multipart file in the "file" field, indexed
// synchronously.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeDocumentTooLarge,
				domain.ErrDocumentTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeDocumentTooLarge,
				domain.ErrDocumentTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read upload")
		return
	}
	if len(content) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "uploaded file is empty")
		return
	}

	info, err := s.sessions.Upload(r.Context(), header.Filename, content)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{
		DocumentID: info.DocumentID,
		Filename:   info.Filename,
		Status:     string(info.State),
		Chunks:     info.Chunks,
	})
}

// AnalyzeRequest is the JSON body for POST /analyze.
type AnalyzeRequest struct {
	DocumentID string `json:"document_id"`
	Query      string `json:"query"`
}

// SourceRef points at a context chunk used for the answer.
type SourceRef struct {
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// AnalyzeResponse is the JSON body for a successful analysis.
type AnalyzeResponse struct {
	Response string      `json:"response"`
	Grounded bool        `json:"grounded"`
	Sources  []SourceRef `json:"sources"`
}

// Analyze handles POST /analyze: answer a question against an uploaded document.
func (s *Server) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "document_id is required")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	idx, err := s.sessions.Acquire(r.Context(), req.DocumentID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	answer, err := s.ask.Ask(r.Context(), idx, req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sources := make([]SourceRef, len(answer.Sources))
	for i, src := range answer.Sources {
		sources[i] = SourceRef{ChunkIndex: src.Chunk.Seq, Score: src.Score}
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Response: answer.Text,
		Grounded: answer.Grounded,
		Sources:  sources,
	})
}

// DocumentResponse is the JSON status view of a document session.
type DocumentResponse struct {
	DocumentID string     `json:"document_id"`
	Filename   string     `json:"filename"`
	Format     string     `json:"format"`
	Status     string     `json:"status"`
	Chunks     int        `json:"chunks"`
	CreatedAt  time.Time  `json:"created_at"`
	ReadyAt    *time.Time `json:"ready_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, _ *http.Request) {
	infos := s.sessions.List()

	items := make([]DocumentResponse, len(infos))
	for i, info := range infos {
		items[i] = documentToResponse(info)
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentToResponse(info))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Evict(chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for name, result := range report.Checks {
		checks[name] = string(result)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": report.Status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func documentToResponse(info session.Info) DocumentResponse {
	resp := DocumentResponse{
		DocumentID: info.DocumentID,
		Filename:   info.Filename,
		Format:     string(info.Format),
		Status:     string(info.State),
		Chunks:     info.Chunks,
		CreatedAt:  info.CreatedAt,
	}
	if !info.ReadyAt.IsZero() {
		t := info.ReadyAt
		resp.ReadyAt = &t
	}
	if info.Err != nil {
		resp.Error = safeDomainMessage(info.Err)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrEmptyDocument,
		domain.ErrExtraction,
		domain.ErrUnsupportedFormat,
		domain.ErrNotFound,
		domain.ErrBuildInProgress,
		domain.ErrDocumentTooLarge,
		domain.ErrNoRelevantContext,
		domain.ErrEmbeddingProvider,
		domain.ErrGenerationProvider,
		domain.ErrSessionFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
