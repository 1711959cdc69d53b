// Package httpapi exposes ingestion and query over HTTP with JSON bodies.
//
// The API is a thin driving adapter: request decoding, tenant extraction and
// status mapping live here, everything else is delegated to the core
// services. Tenants identify themselves with the X-User-ID header; body
// fields never carry the tenant so a request cannot claim one tenant in the
// header and act as another.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/custodia-labs/vision/internal/core/domain"
	"github.com/custodia-labs/vision/internal/core/ports/driving"
	"github.com/custodia-labs/vision/internal/logger"
)

// userIDHeader carries the tenant on every authenticated route.
const userIDHeader = "X-User-ID"

// Server serves the ingestion and query API.
type Server struct {
	ingestion driving.IngestionService
	query     driving.QueryService
	mux       *http.ServeMux
}

// NewServer creates a server wired to the given services.
func NewServer(ingestion driving.IngestionService, query driving.QueryService) *Server {
	s := &Server{
		ingestion: ingestion,
		query:     query,
		mux:       http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /ingest/submit", s.handleSubmit)
	s.mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	s.mux.HandleFunc("POST /jobs/{id}/retry", s.handleRetryJob)
	s.mux.HandleFunc("POST /query", s.handleQuery)
	s.mux.HandleFunc("GET /documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /documents/{id}/reprocess", s.handleReprocess)
	s.mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type submitRequest struct {
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	SourceURI  string `json:"source_uri"`
}

type submitResponse struct {
	DocumentID string `json:"document_id"`
	JobID      string `json:"job_id"`
	Status     string `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.ingestion.Submit(r.Context(), driving.Submission{
		UserID:     userID,
		Title:      req.Title,
		SourceType: domain.SourceType(req.SourceType),
		SourceURI:  req.SourceURI,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		DocumentID: result.DocumentID,
		JobID:      result.JobID,
		Status:     string(result.Status),
	})
}

type jobResponse struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Attempts     int       `json:"attempts"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	job, err := s.ingestion.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// Jobs are tenant-scoped even though IDs are unguessable.
	if job.UserID != userID {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, jobResponse{
		ID:           job.ID,
		DocumentID:   job.DocumentID,
		Status:       string(job.Status),
		ErrorMessage: job.ErrorMessage,
		Attempts:     job.Attempts,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	})
}

func (s *Server) handleRetryJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	jobID := r.PathValue("id")
	job, err := s.ingestion.GetJob(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if job.UserID != userID {
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
		return
	}

	if err := s.ingestion.Retry(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type queryRequest struct {
	Query       string   `json:"query"`
	TopK        int      `json:"top_k,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`
}

type citationResponse struct {
	Marker     string  `json:"marker"`
	DocumentID string  `json:"document_id"`
	Snippet    string  `json:"snippet"`
	PageNumber *int    `json:"page_number,omitempty"`
	Score      float64 `json:"score"`
}

type queryResponse struct {
	Answer    string             `json:"answer"`
	Citations []citationResponse `json:"citations"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	answer, err := s.query.Answer(r.Context(), userID, req.Query, domain.QueryOptions{
		TopK:        req.TopK,
		DocumentIDs: req.DocumentIDs,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := queryResponse{Answer: answer.Text, Citations: []citationResponse{}}
	for _, c := range answer.Citations {
		resp.Citations = append(resp.Citations, citationResponse{
			Marker:     c.Marker,
			DocumentID: c.DocumentID,
			Snippet:    c.Snippet,
			PageNumber: c.PageNumber,
			Score:      c.Score,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type documentResponse struct {
	ID               string     `json:"id"`
	SourceType       string     `json:"source_type"`
	Title            string     `json:"title"`
	SourceURI        string     `json:"source_uri"`
	IngestedAt       time.Time  `json:"ingested_at"`
	ContentCreatedAt *time.Time `json:"content_created_at,omitempty"`
	Status           string     `json:"status"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	docs, err := s.ingestion.ListDocuments(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, documentResponse{
			ID:               d.ID,
			SourceType:       string(d.SourceType),
			Title:            d.Title,
			SourceURI:        d.SourceURI,
			IngestedAt:       d.IngestedAt,
			ContentCreatedAt: d.ContentCreatedAt,
			Status:           string(d.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	job, err := s.ingestion.CreateJob(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, jobResponse{
		ID:         job.ID,
		DocumentID: job.DocumentID,
		Status:     string(job.Status),
		Attempts:   job.Attempts,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := tenant(w, r)
	if !ok {
		return
	}

	if err := s.ingestion.DeleteDocument(r.Context(), userID, r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// tenant extracts the tenant header, rejecting the request when absent.
func tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return "", false
	}
	return userID, true
}

// writeDomainError maps domain errors onto HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrRetryExhausted):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTenantScope):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrGenerationUnavailable), errors.Is(err, domain.ErrEmbeddingService):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("Unhandled API error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
