package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
	"github.com/anne-tanne/metadata-change-app/internal/editor"
	"github.com/anne-tanne/metadata-change-app/internal/metadata"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Server exposes the editor over HTTP
type Server struct {
	svc     *editor.Service
	addr    string
	maxBody int64
}

// New creates a new API server. maxBodyMB bounds request bodies.
func New(svc *editor.Service, addr string, maxBodyMB int) *Server {
	if maxBodyMB <= 0 {
		maxBodyMB = 16
	}
	return &Server{svc: svc, addr: addr, maxBody: int64(maxBodyMB) << 20}
}

// Handler returns the routed handler with CORS and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.health)

	// Folders
	mux.HandleFunc("POST /api/folder/scan", s.scanFolder)
	mux.HandleFunc("GET /api/folders/recent", s.recentFolders)

	// Metadata
	mux.HandleFunc("GET /api/metadata/{path...}", s.getMetadata)
	mux.HandleFunc("PUT /api/metadata/{path...}", s.updateMetadata)
	mux.HandleFunc("POST /api/batch/update", s.batchUpdate)
	mux.HandleFunc("POST /api/export", s.export)
	mux.HandleFunc("GET /api/fields", s.fields)

	// Learning
	mux.HandleFunc("GET /api/suggestions", s.suggestions)
	mux.HandleFunc("GET /api/suggestions/popular", s.popular)
	mux.HandleFunc("GET /api/suggestions/recent", s.recent)
	mux.HandleFunc("POST /api/recommendations", s.recommendations)
	mux.HandleFunc("GET /api/patterns", s.patterns)

	// Preferences
	mux.HandleFunc("GET /api/preferences/{key}", s.getPreference)
	mux.HandleFunc("PUT /api/preferences/{key}", s.setPreference)

	return withLogging(withCORS(mux))
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Metadata editor API available", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "err", err)
			return err
		}
		slog.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

// withCORS adds CORS headers for the browser frontend
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		slog.Info("Request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}
	if err := s.svc.Ping(r.Context()); err != nil {
		resp["status"] = "unhealthy"
		resp["error"] = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScanRequest is the body of a folder scan
type ScanRequest struct {
	FolderPath string `json:"folder_path"`
}

func (s *Server) scanFolder(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FolderPath) == "" {
		writeError(w, http.StatusBadRequest, "No folder path provided")
		return
	}

	scan, err := s.svc.ScanFolder(r.Context(), req.FolderPath)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) recentFolders(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	writeJSON(w, http.StatusOK, map[string]any{
		"folders": s.svc.RecentFolders(r.Context(), limit),
	})
}

// imagePath decodes the path wildcard; '|' stands for '/'
func imagePath(r *http.Request) string {
	return strings.ReplaceAll(r.PathValue("path"), "|", "/")
}

func (s *Server) getMetadata(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetMetadataAndSuggestions(r.Context(), imagePath(r))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateRequest is the body of a metadata update
type UpdateRequest struct {
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) updateMetadata(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !s.decode(w, r, &req) {
		return
	}

	res := s.svc.UpdateMetadata(r.Context(), imagePath(r), req.Metadata)
	if !res.Success {
		writeJSON(w, statusFor(res.Err), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// BatchRequest is the body of a batch update
type BatchRequest struct {
	Updates []editor.BatchUpdate `json:"updates"`
}

func (s *Server) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.BatchUpdate(r.Context(), req.Updates))
}

// ExportRequest is the body of an export
type ExportRequest struct {
	ImagePaths []string `json:"image_paths"`
	Format     string   `json:"format"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !s.decode(w, r, &req) {
		return
	}

	exp, err := s.svc.ExportMetadata(r.Context(), req.ImagePaths, req.Format)
	if errors.Is(err, domain.ErrUnsupportedFormat) {
		writeError(w, http.StatusBadRequest, "Unsupported format")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (s *Server) fields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, metadata.SupportedFields())
}

func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.SuggestionsForField(r.Context(), r.URL.Query().Get("field")))
}

func (s *Server) popular(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	writeJSON(w, http.StatusOK, map[string]any{
		"values": s.svc.PopularValues(r.Context(), limit),
	})
}

func (s *Server) recent(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	limit := queryInt(r, "limit", 20)
	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"values": s.svc.RecentValues(r.Context(), days, limit),
	})
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	recs, problems := s.svc.Recommendations(req.Metadata)
	writeJSON(w, http.StatusOK, map[string]any{
		"recommendations": recs,
		"warnings":        problems,
	})
}

func (s *Server) patterns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"patterns": s.svc.Patterns()})
}

// PreferenceRequest is the body of a preference write
type PreferenceRequest struct {
	Value any `json:"value"`
}

func (s *Server) getPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	writeJSON(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": s.svc.Preference(r.Context(), key, nil),
	})
}

func (s *Server) setPreference(w http.ResponseWriter, r *http.Request) {
	var req PreferenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if !s.svc.SetPreference(r.Context(), r.PathValue("key"), req.Value) {
		writeError(w, http.StatusInternalServerError, "Failed to save preference")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// decode reads a JSON body into v, answering 400 on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotDirectory),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrInvalidRecord):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
