// Package server exposes the issue store over HTTP. It is the reference
// implementation of the REST surface the client packages talk to.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ALT-F4-LLC/issuedesk/internal/db"
	"github.com/ALT-F4-LLC/issuedesk/internal/model"
)

// maxUploadBytes caps the size of a CSV upload held in memory.
const maxUploadBytes = 32 << 20

// Server routes REST requests to the sqlite-backed store.
type Server struct {
	db  *sql.DB
	log *slog.Logger
	mux *http.ServeMux
}

// New returns a Server backed by conn. A nil logger discards request logs.
func New(conn *sql.DB, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{db: conn, log: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /issues", s.handleCreateIssue)
	s.mux.HandleFunc("GET /issues", s.handleListIssues)
	s.mux.HandleFunc("POST /issues/bulk-update", s.handleBulkUpdate)
	s.mux.HandleFunc("POST /issues/import", s.handleImport)
	s.mux.HandleFunc("GET /issues/{id}", s.handleGetIssue)
	s.mux.HandleFunc("PATCH /issues/{id}", s.handleUpdateIssue)
	s.mux.HandleFunc("PUT /issues/{id}/labels", s.handleSetLabels)
	s.mux.HandleFunc("GET /issues/{id}/comments", s.handleListComments)
	s.mux.HandleFunc("POST /issues/{id}/comments", s.handleAddComment)
	s.mux.HandleFunc("GET /issues/{id}/audit-logs", s.handleAuditLogs)

	s.mux.HandleFunc("GET /labels", s.handleLabels)
	s.mux.HandleFunc("GET /users", s.handleUsers)

	s.mux.HandleFunc("GET /reports/top-assignees", s.handleTopAssignees)
	s.mux.HandleFunc("GET /reports/latency", s.handleLatency)
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("issue store listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeStoreError maps a db-layer error to its HTTP status.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var fe *model.FieldError
	switch {
	case errors.As(err, &fe):
		writeError(w, http.StatusBadRequest, fe.Message)
	case errors.Is(err, db.ErrNotFound):
		writeError(w, http.StatusNotFound, "issue not found")
	case errors.Is(err, db.ErrVersionConflict):
		writeError(w, http.StatusConflict, "version conflict")
	case errors.Is(err, db.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.log.Error("store error", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
