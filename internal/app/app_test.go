package app

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/contractreview/internal/analysis"
	"github.com/joelkehle/contractreview/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Provider:        "openai",
			Timeout:         time.Second,
			MaxOutputTokens: 500,
		},
		Extract: config.ExtractConfig{NormalizeText: true, MinLength: 100, MaxFileMB: 5},
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestNewServiceExtractOnlyNeedsNoKey(t *testing.T) {
	svc, err := NewService(baseConfig(), quietLogger(), Options{})
	require.NoError(t, err)
	defer svc.Close()
	assert.Empty(t, svc.Model)
	assert.False(t, svc.ArchiveEnabled())
}

func TestNewServiceRequiresKeyForModel(t *testing.T) {
	_, err := NewService(baseConfig(), quietLogger(), Options{NeedModel: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewServiceWithModelAndArchive(t *testing.T) {
	cfg := baseConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.Archive.DBPath = filepath.Join(t.TempDir(), "reviews.db")

	svc, err := NewService(cfg, quietLogger(), Options{NeedModel: true, UseArchive: true})
	require.NoError(t, err)
	defer svc.Close()
	assert.Equal(t, analysis.DefaultOpenAIModel, svc.Model)
	assert.True(t, svc.ArchiveEnabled())
}

func TestNewServiceArchiveNeedsOptIn(t *testing.T) {
	cfg := baseConfig()
	cfg.Archive.DBPath = filepath.Join(t.TempDir(), "reviews.db")
	svc, err := NewService(cfg, quietLogger(), Options{})
	require.NoError(t, err)
	assert.False(t, svc.ArchiveEnabled())
	assert.NoError(t, svc.Close())
}
