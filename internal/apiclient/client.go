// Package apiclient talks to a running contract-server.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joelkehle/contractreview/internal/archive"
	"github.com/joelkehle/contractreview/internal/review"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("contract-server %d %s: %s", e.Status, e.Code, e.Message)
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

type Health struct {
	OK      bool   `json:"ok"`
	Model   string `json:"model"`
	Archive bool   `json:"archive"`
	PDF     bool   `json:"pdf"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient uses a generous timeout since a review waits on the model.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, decodeAPIError(resp, blob)
	}
	return blob, nil
}

func decodeAPIError(resp *http.Response, blob []byte) error {
	var env struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
	if err := json.Unmarshal(blob, &env); err != nil || env.Error.Code == "" {
		apiErr.Code = "http_error"
		apiErr.Message = strings.TrimSpace(string(blob))
		return apiErr
	}
	apiErr.Code = env.Error.Code
	apiErr.Message = env.Error.Message
	if env.Error.RequestID != "" {
		apiErr.RequestID = env.Error.RequestID
	}
	return apiErr
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	out, err := c.do(ctx, http.MethodGet, "/v1/health", "", nil)
	if err != nil {
		return h, err
	}
	err = json.Unmarshal(out, &h)
	return h, err
}

func (c *Client) AnalyzeText(ctx context.Context, text, sourceName string) (*review.Result, error) {
	blob, err := json.Marshal(map[string]string{"text": text, "source_name": sourceName})
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, http.MethodPost, "/v1/analyze", "application/json", bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	return decodeReview(out)
}

// AnalyzeFile uploads the document at path for review.
func (c *Client) AnalyzeFile(ctx context.Context, path string) (*review.Result, error) {
	body, contentType, err := fileForm(path)
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, http.MethodPost, "/v1/analyze", contentType, body)
	if err != nil {
		return nil, err
	}
	return decodeReview(out)
}

func (c *Client) Extract(ctx context.Context, path string) (*review.Extraction, error) {
	body, contentType, err := fileForm(path)
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, http.MethodPost, "/v1/extract", contentType, body)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Extraction *review.Extraction `json:"extraction"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, err
	}
	if resp.Extraction == nil {
		return nil, fmt.Errorf("missing extraction in response")
	}
	return resp.Extraction, nil
}

func (c *Client) GetAnalysis(ctx context.Context, id string) (*review.Result, error) {
	out, err := c.do(ctx, http.MethodGet, "/v1/analyses/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, err
	}
	return decodeReview(out)
}

func (c *Client) ListAnalyses(ctx context.Context, limit int) ([]archive.Record, error) {
	path := "/v1/analyses"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	out, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Analyses []archive.Record `json:"analyses"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, err
	}
	return resp.Analyses, nil
}

func (c *Client) DeleteAnalysis(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/v1/analyses/"+url.PathEscape(id), "", nil)
	return err
}

// Schema returns the JSON schema the server asks the model to follow.
func (c *Client) Schema(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/v1/schema", "", nil)
}

// Report downloads a rendered report; format is md, html, pdf or xlsx.
func (c *Client) Report(ctx context.Context, id, format string) ([]byte, error) {
	path := "/v1/analyses/" + url.PathEscape(id) + "/report?format=" + url.QueryEscape(format)
	return c.do(ctx, http.MethodGet, path, "", nil)
}

func decodeReview(out []byte) (*review.Result, error) {
	var resp struct {
		Review *review.Result `json:"review"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return nil, err
	}
	if resp.Review == nil {
		return nil, fmt.Errorf("missing review in response")
	}
	return resp.Review, nil
}

func fileForm(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
