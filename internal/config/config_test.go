package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "CONTRACT_LLM_PROVIDER", "CONTRACT_LLM_MODEL", "CONTRACT_LLM_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, int64(1200), cfg.LLM.MaxOutputTokens)
	assert.True(t, cfg.Extract.NormalizeText)
	assert.Equal(t, 100, cfg.Extract.MinLength)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Archive.DBPath)
	assert.Error(t, cfg.RequireAPIKey())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "review.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: OpenAI
  model: gpt-4.1-mini
  timeout: 15s
extract:
  normalize_text: false
  min_length: 50
server:
  addr: 127.0.0.1:9000
archive:
  db_path: `+filepath.Join(dir, "history.db")+`
`), 0o644))

	t.Setenv("CONTRACT_LLM_MODEL", "gpt-4.1")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.False(t, cfg.Extract.NormalizeText)
	assert.Equal(t, 50, cfg.Extract.MinLength)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.Archive.DBPath)
	assert.NoError(t, cfg.RequireAPIKey())
}

func TestLoadExplicitKeyWins(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("CONTRACT_LLM_API_KEY", "explicit")
	t.Setenv("ANTHROPIC_API_KEY", "fallback")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.LLM.APIKey)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	for name, mutate := range map[string]func(*Config){
		"provider":       func(c *Config) { c.LLM.Provider = "ollama" },
		"timeout":        func(c *Config) { c.LLM.Timeout = 0 },
		"tokens":         func(c *Config) { c.LLM.MaxOutputTokens = -1 },
		"min length":     func(c *Config) { c.Extract.MinLength = -5 },
		"addr":           func(c *Config) { c.Server.Addr = "" },
		"bad addr":       func(c *Config) { c.Server.Addr = "not an addr" },
		"burst":          func(c *Config) { c.Server.RateLimitBurst = 0 },
		"upload":         func(c *Config) { c.Server.MaxUploadMB = 0 },
		"log format":     func(c *Config) { c.Log.Format = "xml" },
		"max file":       func(c *Config) { c.Extract.MaxFileMB = 0 },
		"request timeout": func(c *Config) { c.Server.RequestTimeout = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
