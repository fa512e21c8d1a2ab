package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractOutputText(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  *Envelope
		want string
	}{
		{name: "nil", env: nil, want: ""},
		{name: "flat output_text", env: &Envelope{OutputText: " {\"a\":1} ", Content: []ContentBlock{{Text: "ignored"}}}, want: `{"a":1}`},
		{
			name: "nested output blocks",
			env: &Envelope{Output: []OutputItem{
				{Type: "reasoning"},
				{Type: "message", Content: []ContentBlock{{Type: "output_text", Text: "part one"}, {Type: "output_text", Content: "part two"}}},
				{Type: "message", Text: "item text"},
			}},
			want: "part one\npart two\nitem text",
		},
		{name: "non-string content ignored", env: &Envelope{Output: []OutputItem{{Content: []ContentBlock{{Content: []any{"x"}}}}}}, want: ""},
		{
			name: "content block list",
			env:  &Envelope{Content: []ContentBlock{{Type: "text", Text: "{\"summary\":"}, {Type: "tool_use", Text: "skip"}, {Type: "text", Text: "\"x\"}"}}},
			want: `{"summary":"x"}`,
		},
		{name: "empty everywhere", env: &Envelope{OutputText: "  ", Output: []OutputItem{{Type: "message"}}}, want: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractOutputText(tc.env))
		})
	}
}

func TestEnvelopeDecodesResponsesPayload(t *testing.T) {
	payload := `{"id":"resp_1","model":"gpt-4.1","output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"summary\":\"s\"}","annotations":[]}]}]}`
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(payload), &env))
	assert.Equal(t, `{"summary":"s"}`, ExtractOutputText(&env))
}

func TestOpenAIProviderCreate(t *testing.T) {
	var got responsesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"resp_1","output_text":"{\"summary\":\"ok\"}"}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL+"/v1/", time.Second)
	env, err := p.Create(context.Background(), ModelRequest{Model: "gpt-4.1", System: "sys", User: "usr", MaxOutputTokens: 1200})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"ok"}`, ExtractOutputText(env))
	assert.Equal(t, "gpt-4.1", got.Model)
	assert.Equal(t, int64(1200), got.MaxOutputTokens)
	assert.Equal(t, []responsesInput{{Role: "system", Content: "sys"}, {Role: "user", Content: "usr"}}, got.Input)
}

func TestOpenAIProviderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"slow down"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("k", srv.URL, time.Second).Create(context.Background(), ModelRequest{Model: "m"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Equal(t, TransportRateLimit, classifyTransportError(err))
}

type fakeMessager struct {
	params anthropic.MessageNewParams
	resp   *anthropic.Message
	err    error
}

func (f *fakeMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return f.resp, f.err
}

func TestAnthropicProviderCreate(t *testing.T) {
	m := &fakeMessager{resp: &anthropic.Message{
		ID:    "msg_1",
		Model: anthropic.Model("claude-test"),
		Content: []anthropic.ContentBlockUnion{
			{Type: "text", Text: `{"summary":`},
			{Type: "thinking"},
			{Type: "text", Text: `"a"}`},
		},
	}}
	p := NewAnthropicProviderWithMessager(m)

	env, err := p.Create(context.Background(), ModelRequest{Model: "claude-test", System: "sys", User: "usr", MaxOutputTokens: 1200})
	require.NoError(t, err)

	assert.Equal(t, `{"summary":"a"}`, ExtractOutputText(env))
	assert.Equal(t, "msg_1", env.ID)
	assert.Equal(t, anthropic.Model("claude-test"), m.params.Model)
	assert.Equal(t, int64(1200), m.params.MaxTokens)
	require.Len(t, m.params.System, 1)
	assert.Equal(t, "sys", m.params.System[0].Text)
	assert.Equal(t, DefaultAnthropicModel, p.DefaultModel())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyTransportError(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want TransportClass
	}{
		{context.DeadlineExceeded, TransportTimeout},
		{fmt.Errorf("post: %w", context.DeadlineExceeded), TransportTimeout},
		{timeoutErr{}, TransportTimeout},
		{&StatusError{StatusCode: 503}, TransportServer},
		{&StatusError{StatusCode: 401}, TransportClient},
		{&StatusError{StatusCode: 408}, TransportTimeout},
		{errors.New("POST failed: status code: 429"), TransportRateLimit},
		{errors.New("upstream status=502"), TransportServer},
		{errors.New("status 400 bad request"), TransportClient},
		{errors.New("hit the rate limit"), TransportRateLimit},
		{errors.New("connection reset by peer"), TransportServer},
	} {
		assert.Equal(t, tc.want, classifyTransportError(tc.err), tc.err.Error())
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Name: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, p.DefaultModel())

	p, err = NewProvider(ProviderConfig{Name: "Anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultAnthropicModel, p.DefaultModel())

	_, err = NewProvider(ProviderConfig{Name: "openai"})
	assert.ErrorContains(t, err, "api key")

	_, err = NewProvider(ProviderConfig{Name: "mystery", APIKey: "k"})
	assert.ErrorContains(t, err, "unknown llm provider")
}
