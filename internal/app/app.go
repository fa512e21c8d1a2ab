// Package app wires configured components into a review.Service for the
// command binaries.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/analysis"
	"github.com/joelkehle/contractreview/internal/archive"
	"github.com/joelkehle/contractreview/internal/config"
	"github.com/joelkehle/contractreview/internal/docextract"
	"github.com/joelkehle/contractreview/internal/review"
)

type Options struct {
	// NeedModel builds the model client and fails without an API key.
	NeedModel bool
	// UseArchive opens the SQLite archive when archive.db_path is set.
	UseArchive bool
}

// Service is a wired review.Service plus whatever must be closed with it.
type Service struct {
	*review.Service
	Model string
	store *archive.SQLiteStore
}

func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func NewService(cfg *config.Config, log logrus.FieldLogger, opts Options) (*Service, error) {
	ex := docextract.NewExtractor(docextract.Config{
		NormalizeText: cfg.Extract.NormalizeText,
		MaxFileBytes:  int64(cfg.Extract.MaxFileMB) << 20,
	}, docextract.WithLogger(log))

	out := &Service{}
	var an review.Analyzer
	if opts.NeedModel {
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		provider, err := analysis.NewProvider(analysis.ProviderConfig{
			Name:    cfg.LLM.Provider,
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		})
		if err != nil {
			return nil, err
		}
		a, err := analysis.NewAnalyzer(provider, analysis.Config{
			Model:           cfg.LLM.Model,
			Timeout:         cfg.LLM.Timeout,
			MaxOutputTokens: cfg.LLM.MaxOutputTokens,
		}, analysis.WithLogger(log))
		if err != nil {
			return nil, err
		}
		an = a
		out.Model = a.Model()
	}

	svcOpts := []review.Option{review.WithLogger(log)}
	if opts.UseArchive && cfg.Archive.DBPath != "" {
		store, err := archive.NewSQLiteStore(cfg.Archive.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open archive %s: %w", cfg.Archive.DBPath, err)
		}
		out.store = store
		svcOpts = append(svcOpts, review.WithStore(store))
		log.WithField("db_path", cfg.Archive.DBPath).Info("archive.enabled")
	}

	out.Service = review.NewService(ex, an, review.Config{
		Normalize: cfg.Extract.NormalizeText,
		MinLength: cfg.Extract.MinLength,
	}, svcOpts...)
	return out, nil
}
