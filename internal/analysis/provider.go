package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// ModelRequest is one role-tagged system and user exchange.
type ModelRequest struct {
	Model           string
	System          string
	User            string
	MaxOutputTokens int64
}

// Provider performs the remote model call. Implementations must be safe
// for concurrent use.
type Provider interface {
	Create(ctx context.Context, req ModelRequest) (*Envelope, error)
	DefaultModel() string
}

// Envelope is the response body shape shared by the supported providers.
// OpenAI Responses fills OutputText and Output; Anthropic Messages fills
// Content.
type Envelope struct {
	ID         string         `json:"id,omitempty"`
	Model      string         `json:"model,omitempty"`
	OutputText string         `json:"output_text,omitempty"`
	Output     []OutputItem   `json:"output,omitempty"`
	Content    []ContentBlock `json:"content,omitempty"`
}

type OutputItem struct {
	Type    string         `json:"type,omitempty"`
	Text    string         `json:"text,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	// Content is occasionally a plain string instead of Text.
	Content any `json:"content,omitempty"`
}

// ExtractOutputText pulls the answer text out of env. The flat output_text
// field wins; otherwise nested output items are joined with newlines;
// otherwise top-level text blocks are concatenated. An empty result means
// the model produced nothing usable.
func ExtractOutputText(env *Envelope) string {
	if env == nil {
		return ""
	}
	if s := strings.TrimSpace(env.OutputText); s != "" {
		return s
	}

	var parts []string
	for _, item := range env.Output {
		for _, c := range item.Content {
			if c.Text != "" {
				parts = append(parts, c.Text)
			} else if s, ok := c.Content.(string); ok {
				parts = append(parts, s)
			}
		}
		if item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	if s := strings.TrimSpace(strings.Join(parts, "\n")); s != "" {
		return s
	}

	var sb strings.Builder
	for _, b := range env.Content {
		if b.Type == "" || b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return strings.TrimSpace(sb.String())
}

type ProviderConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func NewProvider(cfg ProviderConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s api key not configured", cfg.Name)
	}
	switch strings.ToLower(cfg.Name) {
	case ProviderAnthropic, "":
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Name)
	}
}

// TransportClass buckets a failed remote call for logs and API responses.
type TransportClass string

const (
	TransportTimeout   TransportClass = "timeout"
	TransportRateLimit TransportClass = "rate_limit"
	TransportServer    TransportClass = "server"
	TransportClient    TransportClass = "client"
)

var statusCodeRe = regexp.MustCompile(`status(?:\s+code)?[:=\s]+(\d{3})`)

// StatusError is returned by providers for non-2xx HTTP responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func classifyTransportError(err error) TransportClass {
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return TransportTimeout
	}
	var se *StatusError
	if errors.As(err, &se) {
		return classifyStatus(se.StatusCode)
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return classifyStatus(ae.StatusCode)
	}

	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		code, _ := strconv.Atoi(m[1])
		return classifyStatus(code)
	}
	if strings.Contains(msg, "rate limit") {
		return TransportRateLimit
	}
	return TransportServer
}

func classifyStatus(code int) TransportClass {
	switch {
	case code == 429:
		return TransportRateLimit
	case code == 408:
		return TransportTimeout
	case code >= 500:
		return TransportServer
	case code >= 400:
		return TransportClient
	default:
		return TransportServer
	}
}
