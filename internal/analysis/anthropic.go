package analysis

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicMessager is the slice of the SDK client used here.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicProvider struct {
	messages AnthropicMessager
}

func NewAnthropicProvider(apiKey, baseURL string) *AnthropicProvider {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	c := anthropic.NewClient(opts...)
	return &AnthropicProvider{messages: &c.Messages}
}

// NewAnthropicProviderWithMessager is used by tests and by callers that
// already hold a configured client.
func NewAnthropicProviderWithMessager(m AnthropicMessager) *AnthropicProvider {
	return &AnthropicProvider{messages: m}
}

func (p *AnthropicProvider) DefaultModel() string { return DefaultAnthropicModel }

func (p *AnthropicProvider) Create(ctx context.Context, req ModelRequest) (*Envelope, error) {
	resp, err := p.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxOutputTokens,
		System:    []anthropic.TextBlockParam{{Text: req.System}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.User))},
	})
	if err != nil {
		return nil, err
	}
	env := &Envelope{ID: resp.ID, Model: string(resp.Model)}
	for _, b := range resp.Content {
		if b.Type == "text" {
			env.Content = append(env.Content, ContentBlock{Type: "text", Text: b.Text})
		}
	}
	return env, nil
}
