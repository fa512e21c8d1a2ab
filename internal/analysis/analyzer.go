package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joelkehle/contractreview/internal/common"
)

const (
	DefaultTimeout         = 60 * time.Second
	DefaultMaxOutputTokens = 1200
)

var tracer = otel.Tracer("github.com/joelkehle/contractreview/internal/analysis")

type Config struct {
	// Model overrides the provider's default model.
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int64
}

// Analyzer runs one model call per Analyze. It holds only immutable
// configuration and is safe for concurrent use.
type Analyzer struct {
	provider Provider
	parser   *Parser
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*Analyzer)

func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Analyzer) { a.log = l }
}

// WithClock replaces time.Now for processing time measurement.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(provider Provider, cfg Config, opts ...Option) (*Analyzer, error) {
	if provider == nil {
		return nil, errors.New("analysis provider is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = provider.DefaultModel()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}
	a := &Analyzer{
		provider: provider,
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.parser = NewParser(a.log)
	return a, nil
}

func (a *Analyzer) Model() string { return a.cfg.Model }

// Analyze sends contractText to the model and returns the structured
// result. Provider failures and empty answers are Analysis errors;
// undecodable answers are Parse errors. There are no retries.
func (a *Analyzer) Analyze(ctx context.Context, contractText string) (*ContractAnalysis, error) {
	start := a.now()
	ctx, span := tracer.Start(ctx, "analysis.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", a.cfg.Model),
		attribute.Int("contract.chars", len(contractText)),
	)

	log := a.log.WithFields(logrus.Fields{"model": a.cfg.Model, "chars": len(contractText)})
	log.Info("analysis.start")

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	env, err := a.provider.Create(callCtx, ModelRequest{
		Model:           a.cfg.Model,
		System:          SystemPrompt(),
		User:            UserPrompt(contractText),
		MaxOutputTokens: a.cfg.MaxOutputTokens,
	})
	if err != nil {
		class := classifyTransportError(err)
		if callCtx.Err() != nil && ctx.Err() == nil {
			class = TransportTimeout
		}
		log.WithError(err).WithFields(logrus.Fields{
			"class":      class,
			"elapsed_ms": a.now().Sub(start).Milliseconds(),
		}).Error("analysis.transport_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, string(class))
		return nil, common.NewAnalysisError("model call failed ("+string(class)+")", err)
	}

	text := ExtractOutputText(env)
	if text == "" {
		log.Error("analysis.no_output")
		span.SetStatus(codes.Error, "no output")
		return nil, common.NewAnalysisError("model returned no output", nil)
	}

	parsed, err := a.parser.Parse(text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse")
		return nil, err
	}

	result := &ContractAnalysis{
		Summary:         parsed.Summary,
		KeyTerms:        parsed.KeyTerms,
		RedFlags:        parsed.RedFlags,
		RiskScore:       parsed.RiskScore,
		Recommendations: parsed.Recommendations,
	}
	result.ProcessingTime = a.now().Sub(start).Seconds()

	span.SetAttributes(
		attribute.Int("analysis.red_flags", len(result.RedFlags)),
		attribute.String("analysis.overall", string(result.RiskScore.OverallScore)),
		attribute.String("analysis.parse_strategy", string(parsed.Strategy)),
	)
	log.WithFields(logrus.Fields{
		"red_flags":  len(result.RedFlags),
		"overall":    result.RiskScore.OverallScore,
		"strategy":   parsed.Strategy,
		"warnings":   len(parsed.Warnings),
		"elapsed_ms": int64(result.ProcessingTime * 1000),
	}).Info("analysis.done")
	return result, nil
}
