package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// Validate checks the configuration for errors. The API key is not
// checked here because extract-only commands run without one.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}
	if c.LLM.MaxOutputTokens <= 0 {
		return errors.New("llm max_output_tokens must be positive")
	}

	if c.Extract.MinLength < 0 {
		return errors.New("extract min_length cannot be negative")
	}
	if c.Extract.MaxFileMB <= 0 {
		return errors.New("extract max_file_mb must be positive")
	}

	if c.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}
	if _, err := net.ResolveTCPAddr("tcp", c.Server.Addr); err != nil {
		return fmt.Errorf("invalid server address: %v", err)
	}
	if c.Server.RateLimitRPS < 0 {
		return errors.New("server rate_limit_rps cannot be negative")
	}
	if c.Server.RateLimitRPS > 0 && c.Server.RateLimitBurst <= 0 {
		return errors.New("server rate_limit_burst must be positive when rate limiting is on")
	}
	if c.Server.MaxUploadMB <= 0 {
		return errors.New("server max_upload_mb must be positive")
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("server request_timeout must be positive")
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// RequireAPIKey reports a missing model credential.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.LLM.APIKey) != "" {
		return nil
	}
	env := "ANTHROPIC_API_KEY"
	if c.LLM.Provider == "openai" {
		env = "OPENAI_API_KEY"
	}
	return fmt.Errorf("%s api key not configured (set %s_LLM_API_KEY or %s)", c.LLM.Provider, EnvPrefix, env)
}
