package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/patrickmn/go-cache"

	"github.com/yurifrl/ibcompare/pkg/csv"
	"github.com/yurifrl/ibcompare/pkg/models"
	"github.com/yurifrl/ibcompare/pkg/reconcile"
	"github.com/yurifrl/ibcompare/pkg/service"
)

// maxUpload caps the size of an uploaded broker export.
const maxUpload = 32 << 20

// Missing-transaction downloads are kept in memory for fileTTL after the
// comparison that produced them.
const (
	fileTTL         = time.Hour
	cleanupInterval = 10 * time.Minute
)

// Comparer reconciles an uploaded broker export. *service.Processor
// implements it.
type Comparer interface {
	CompareReader(ctx context.Context, r io.Reader, params service.Params) (*reconcile.Report, error)
}

// Server handles HTTP comparison requests against a fixed journal and
// symbol table.
type Server struct {
	logger   *log.Logger
	comparer Comparer
	params   service.Params
	mux      *http.ServeMux
	missing  *cache.Cache
}

// New creates a new HTTP server. params supplies the journal, symbol table
// and default date mode for every request.
func New(logger *log.Logger, comparer Comparer, params service.Params) *Server {
	s := &Server{
		logger:   logger,
		comparer: comparer,
		params:   params,
		mux:      http.NewServeMux(),
		missing:  cache.New(fileTTL, cleanupInterval),
	}
	s.setupRoutes()
	return s
}

// Start listens on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/healthz", s.withLogging(s.handleHealth))
	s.mux.HandleFunc("/api/compare", s.withLogging(s.handleCompare))
	s.mux.HandleFunc("/api/files/", s.withLogging(s.handleFiles))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// CompareResponse is the body of a successful comparison.
type CompareResponse struct {
	Status  string   `json:"status"`
	File    string   `json:"file"`
	Lines   []string `json:"lines"`
	Matched int      `json:"matched"`
	Missing int      `json:"missing"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, header, err := r.FormFile("report")
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, "failed to read report", err)
		return
	}
	defer file.Close()

	params := s.params
	if v := r.FormValue("effective"); v != "" {
		effective, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "invalid effective value", err)
			return
		}
		params.Effective = effective
	}

	report, err := s.comparer.CompareReader(r.Context(), file, params)
	if err != nil {
		s.respondError(w, r, http.StatusUnprocessableEntity, "comparison failed", err)
		return
	}

	filename := strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename)) + "-missing.csv"
	s.missing.Set(filename, report.Missing(), cache.DefaultExpiration)
	s.logger.Info("comparison complete", "file", header.Filename, "matched", report.MatchedCount(), "missing", report.MissingCount())

	if err := s.writeJSON(w, http.StatusOK, CompareResponse{
		Status:  "success",
		File:    filename,
		Lines:   report.Lines(),
		Matched: report.MatchedCount(),
		Missing: report.MissingCount(),
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// handleFiles serves the missing transactions of a previous comparison as CSV.
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if filename == "" {
		s.respondError(w, r, http.StatusBadRequest, "filename required", nil)
		return
	}

	value, ok := s.missing.Get(filename)
	if !ok {
		s.respondError(w, r, http.StatusNotFound, "file not found", nil)
		return
	}
	txs, ok := value.([]*models.Transaction)
	if !ok {
		s.respondError(w, r, http.StatusInternalServerError, "internal type assertion error", nil)
		return
	}

	body, err := csv.Create(txs, nil)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "failed to render csv", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("failed to write csv response", "err", err)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	body := map[string]string{
		"status": "error",
		"error":  message,
	}
	if err != nil {
		body["detail"] = err.Error()
	}
	_ = s.writeJSON(w, status, body)
}

// withLogging wraps a handler to log requests and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
