// Package httpapi exposes contract review over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/analysis"
	"github.com/joelkehle/contractreview/internal/archive"
	"github.com/joelkehle/contractreview/internal/common"
	"github.com/joelkehle/contractreview/internal/report"
	"github.com/joelkehle/contractreview/internal/review"
)

// Reviewer is the part of review.Service the API needs.
type Reviewer interface {
	ReviewFile(ctx context.Context, path, sourceName string) (*review.Result, error)
	ReviewText(ctx context.Context, text, sourceName string) (*review.Result, error)
	ExtractFile(path string) (*review.Extraction, error)
	Get(ctx context.Context, id string) (*review.Result, error)
	List(ctx context.Context, limit int) ([]archive.Record, error)
	Delete(ctx context.Context, id string) error
	ArchiveEnabled() bool
}

type Config struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	// RateLimitRPS limits review and extract calls across all clients.
	// Zero disables the limiter.
	RateLimitRPS   float64
	RateLimitBurst int
	Model          string
}

type Server struct {
	reviewer Reviewer
	pdf      report.PDFRenderer
	cfg      Config
	log      logrus.FieldLogger
}

type Option func(*Server)

func WithPDFRenderer(r report.PDFRenderer) Option {
	return func(s *Server) { s.pdf = r }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

func NewServer(reviewer Reviewer, cfg Config, opts ...Option) http.Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	s := &Server{reviewer: reviewer, cfg: cfg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}

	router := mux.NewRouter()
	router.Use(requestID, s.accessLog, s.recoverer)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not_found", "no such endpoint")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed")
	})

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	v1.HandleFunc("/schema", s.handleSchema).Methods(http.MethodGet)
	v1.HandleFunc("/analyses", s.handleListAnalyses).Methods(http.MethodGet)
	v1.HandleFunc("/analyses/{id}", s.handleGetAnalysis).Methods(http.MethodGet)
	v1.HandleFunc("/analyses/{id}", s.handleDeleteAnalysis).Methods(http.MethodDelete)
	v1.HandleFunc("/analyses/{id}/report", s.handleReport).Methods(http.MethodGet)

	limited := v1.NewRoute().Subrouter()
	limited.Use(rateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	limited.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	limited.HandleFunc("/extract", s.handleExtract).Methods(http.MethodPost)
	return router
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	body := map[string]any{"code": code, "message": message}
	if id := common.RequestIDFromContext(r.Context()); id != "" {
		body["request_id"] = id
	}
	writeJSON(w, status, map[string]any{"ok": false, "error": body})
}

// writeReviewError maps domain failures onto HTTP statuses.
func (s *Server) writeReviewError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, review.ErrArchiveDisabled) {
		writeError(w, r, http.StatusNotImplemented, "archive_disabled", err.Error())
		return
	}
	if errors.Is(err, context.DeadlineExceeded) && common.KindOf(err) == common.KindInternal {
		writeError(w, r, http.StatusGatewayTimeout, "timeout", "request timed out")
		return
	}
	status := common.StatusFor(err)
	code := string(common.KindOf(err))
	message := err.Error()
	var ce *common.Error
	if errors.As(err, &ce) && ce.Message != "" {
		message = ce.Message
	}
	if status >= 500 {
		s.log.WithError(err).WithField("request_id", common.RequestIDFromContext(r.Context())).Error("http.review_failed")
	}
	writeJSON(w, status, map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":       code,
			"message":    message,
			"request_id": common.RequestIDFromContext(r.Context()),
		},
	})
}

func parseInt(value string, def int) int {
	if strings.TrimSpace(value) == "" {
		return def
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return v
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"model":   s.cfg.Model,
		"archive": s.reviewer.ArchiveEnabled(),
		"pdf":     s.pdf != nil,
	})
}

// handleSchema serves the JSON schema the model is asked to answer in.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(analysis.OutputSchemaJSON())
}
