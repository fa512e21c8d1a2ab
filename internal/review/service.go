// Package review runs the full contract review: extract, check, analyze
// and optionally archive.
package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/analysis"
	"github.com/joelkehle/contractreview/internal/archive"
	"github.com/joelkehle/contractreview/internal/common"
	"github.com/joelkehle/contractreview/internal/docextract"
	"github.com/joelkehle/contractreview/internal/report"
)

var ErrArchiveDisabled = errors.New("review archive is not configured")

type Extractor interface {
	ExtractText(path string, normalize bool) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, contractText string) (*analysis.ContractAnalysis, error)
	Model() string
}

type Store interface {
	Save(ctx context.Context, r archive.Record) error
	Get(ctx context.Context, id string) (archive.Record, error)
	List(ctx context.Context, limit int) ([]archive.Record, error)
	Delete(ctx context.Context, id string) error
}

type Config struct {
	Normalize bool
	MinLength int
}

// Result is one finished review.
type Result struct {
	ID         string                     `json:"id"`
	SourceName string                     `json:"source_name"`
	Model      string                     `json:"model"`
	CreatedAt  time.Time                  `json:"created_at"`
	File       *docextract.FileInfo       `json:"file,omitempty"`
	Stats      docextract.TextStats       `json:"stats"`
	Validation docextract.Validation      `json:"validation"`
	Analysis   *analysis.ContractAnalysis `json:"analysis,omitempty"`
}

// MarshalJSON renders Analysis through ToMap so clients always see the
// same shape.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		Analysis map[string]any `json:"analysis,omitempty"`
	}{plain: plain(r)}
	if r.Analysis != nil {
		out.Analysis = r.Analysis.ToMap()
	}
	return json.Marshal(out)
}

func (r *Result) ReportDocument() report.Document {
	return report.Document{
		ID:          r.ID,
		SourceName:  r.SourceName,
		Model:       r.Model,
		GeneratedAt: r.CreatedAt,
		Analysis:    r.Analysis,
	}
}

// Extraction is the model-free part of a review.
type Extraction struct {
	File       docextract.FileInfo   `json:"file"`
	Text       string                `json:"text"`
	Stats      docextract.TextStats  `json:"stats"`
	Validation docextract.Validation `json:"validation"`
}

type Service struct {
	extractor Extractor
	analyzer  Analyzer
	store     Store
	cfg       Config
	log       logrus.FieldLogger
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithStore(s Store) Option {
	return func(svc *Service) { svc.store = s }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(svc *Service) { svc.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(svc *Service) { svc.newID = f }
}

// NewService builds a Service. analyzer may be nil for extract-only use.
func NewService(extractor Extractor, analyzer Analyzer, cfg Config, opts ...Option) *Service {
	if cfg.MinLength <= 0 {
		cfg.MinLength = docextract.DefaultMinLength
	}
	s := &Service{
		extractor: extractor,
		analyzer:  analyzer,
		cfg:       cfg,
		log:       logrus.StandardLogger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) ArchiveEnabled() bool { return s.store != nil }

// ExtractFile extracts and checks a document without calling the model.
func (s *Service) ExtractFile(path string) (*Extraction, error) {
	info, err := docextract.FileInfoFor(path)
	if err != nil {
		return nil, err
	}
	text, err := s.extractor.ExtractText(path, s.cfg.Normalize)
	if err != nil {
		return nil, err
	}
	return &Extraction{
		File:       info,
		Text:       text,
		Stats:      docextract.Stats(text),
		Validation: docextract.ValidateContractText(text, s.cfg.MinLength),
	}, nil
}

// ReviewFile extracts path and analyzes the text. sourceName labels the
// result and defaults to the file name. Documents without any text are
// rejected before the model is called.
func (s *Service) ReviewFile(ctx context.Context, path, sourceName string) (*Result, error) {
	ex, err := s.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(ex.Text) == "" {
		return nil, common.NewExtractionError(path, "no text could be extracted (scanned or empty document?)", nil)
	}
	if sourceName == "" {
		sourceName = ex.File.Filename
	}
	return s.review(ctx, ex.Text, sourceName, &ex.File, ex.Stats, ex.Validation)
}

func (s *Service) ReviewText(ctx context.Context, text, sourceName string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.NewExtractionError("", "contract text is empty", nil)
	}
	if sourceName == "" {
		sourceName = "pasted text"
	}
	return s.review(ctx, text, sourceName, nil, docextract.Stats(text), docextract.ValidateContractText(text, s.cfg.MinLength))
}

func (s *Service) review(ctx context.Context, text, sourceName string, info *docextract.FileInfo, stats docextract.TextStats, v docextract.Validation) (*Result, error) {
	if s.analyzer == nil {
		return nil, common.NewAnalysisError("analyzer not configured", nil)
	}
	log := s.log.WithField("source", sourceName)
	if !v.IsValid {
		log.WithField("issues", strings.Join(v.Issues, "; ")).Warn("review.validation_failed")
	}

	a, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, err
	}
	res := &Result{
		ID:         s.newID(),
		SourceName: sourceName,
		Model:      s.analyzer.Model(),
		CreatedAt:  s.now().UTC(),
		File:       info,
		Stats:      stats,
		Validation: v,
		Analysis:   a,
	}
	if s.store != nil {
		if err := s.save(ctx, res); err != nil {
			log.WithError(err).WithField("id", res.ID).Warn("review.archive_failed")
		}
	}
	log.WithFields(logrus.Fields{"id": res.ID, "red_flags": len(a.RedFlags)}).Info("review.done")
	return res, nil
}

func (s *Service) save(ctx context.Context, res *Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode review: %w", err)
	}
	return s.store.Save(ctx, archive.Record{
		ID:           res.ID,
		SourceName:   res.SourceName,
		Model:        res.Model,
		OverallRisk:  string(res.Analysis.RiskScore.OverallScore),
		RedFlagCount: len(res.Analysis.RedFlags),
		HighCount:    res.Analysis.CountBySeverity()[analysis.RiskHigh],
		Summary:      res.Analysis.Summary,
		CreatedAt:    res.CreatedAt,
		Payload:      payload,
	})
}

// Get loads an archived review.
func (s *Service) Get(ctx context.Context, id string) (*Result, error) {
	if s.store == nil {
		return nil, ErrArchiveDisabled
	}
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, archive.ErrRecordNotFound) {
		return nil, &common.Error{Kind: common.KindNotFound, Message: "review " + id + " not found"}
	}
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(rec.Payload, &res); err != nil {
		return nil, fmt.Errorf("decode review %s: %w", id, err)
	}
	return &res, nil
}

func (s *Service) List(ctx context.Context, limit int) ([]archive.Record, error) {
	if s.store == nil {
		return nil, ErrArchiveDisabled
	}
	return s.store.List(ctx, limit)
}

// Delete removes an archived review.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrArchiveDisabled
	}
	err := s.store.Delete(ctx, id)
	if errors.Is(err, archive.ErrRecordNotFound) {
		return &common.Error{Kind: common.KindNotFound, Message: "review " + id + " not found"}
	}
	return err
}
