package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/blackmichael/postily/internal/config"
	"github.com/blackmichael/postily/internal/domain"
	"github.com/blackmichael/postily/internal/logging"
)

const maxImportBody = 32 << 20

// Server is the HTTP server exposing the postil corpus and the matcher.
type Server struct {
	cfg        *config.Config
	service    *domain.PostilService
	logger     *slog.Logger
	httpServer *http.Server
}

// ImportRequest is the body of POST /api/postily/import.
type ImportRequest struct {
	Postily []domain.Postil `json:"postily"`
}

// ImportResponse is the result of an import.
type ImportResponse struct {
	Success bool `json:"success"`
	domain.ImportReport
}

// MatchRequest is the body of POST /api/matches. Limit truncates the result
// when positive.
type MatchRequest struct {
	Markdown string `json:"markdown"`
	Limit    int    `json:"limit,omitempty"`
}

// MatchResponse lists matching postily.
type MatchResponse struct {
	Count   int                  `json:"count"`
	Matches []domain.MatchResult `json:"matches"`
}

// NewServer creates a new HTTP server backed by the given service.
func NewServer(cfg *config.Config, service *domain.PostilService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		logger:  logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/postily", s.handleList)
	mux.HandleFunc("GET /api/postily/count", s.handleCount)
	mux.HandleFunc("POST /api/postily/import", s.requireAdmin(s.handleImport))
	mux.HandleFunc("DELETE /api/postily", s.requireAdmin(s.handleDeleteAll))
	mux.HandleFunc("DELETE /api/postily/{id}", s.requireAdmin(s.handleDeactivate))
	mux.HandleFunc("POST /api/matches", s.handleMatches)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      logging.RequestIDMiddleware(withLogging(logger, mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler, including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	postils, err := s.service.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to list postily")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"postily": postils})
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.Count(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to count postily")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBody)).Decode(&req); err != nil {
		logging.FromContext(r.Context(), s.logger).Warn("invalid import body", "error", err)
		writeError(w, http.StatusBadRequest, "InvalidRequest", "body must be a JSON object with a postily array")
		return
	}

	report, err := s.service.Import(r.Context(), req.Postily)
	if err != nil {
		s.writeServiceError(w, r, err, "import failed")
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Success: report.Success(), ImportReport: *report})
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.DeleteAll(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to delete postily")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.service.Deactivate(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, "failed to deactivate postil")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": false})
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Markdown == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "markdown is required")
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "limit must not be negative")
		return
	}

	matches, err := s.service.FindMatches(r.Context(), req.Markdown)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to find matches")
		return
	}
	if req.Limit > 0 && len(matches) > req.Limit {
		matches = matches[:req.Limit]
	}

	writeJSON(w, http.StatusOK, MatchResponse{Count: len(matches), Matches: matches})
}

// requireAdmin rejects requests without the configured bearer token. With no
// token configured every request passes.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AdminToken == "" {
			next(w, r)
			return
		}
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
			logging.FromContext(r.Context(), s.logger).Warn("rejected unauthenticated admin request", "path", r.URL.Path)
			writeError(w, http.StatusUnauthorized, "AuthRequired", "admin token required")
			return
		}
		next(w, r)
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logger := logging.FromContext(r.Context(), s.logger)
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		logger.Warn(message, "error", err)
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "NotFound", err.Error())
	default:
		logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", message)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logging.FromContext(r.Context(), logger).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
