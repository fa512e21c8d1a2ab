// Package mcptool serves contract review as MCP tools over stdio.
package mcptool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/common"
	"github.com/joelkehle/contractreview/internal/review"
)

const ServerName = "contract-review"

// Reviewer is the part of review.Service the tools call.
type Reviewer interface {
	ReviewFile(ctx context.Context, path, sourceName string) (*review.Result, error)
	ReviewText(ctx context.Context, text, sourceName string) (*review.Result, error)
	ExtractFile(path string) (*review.Extraction, error)
}

type AnalyzeFileInput struct {
	Path       string `json:"path" jsonschema:"path to a PDF or DOCX contract on the server's filesystem"`
	SourceName string `json:"source_name,omitempty" jsonschema:"label for the result, defaults to the file name"`
}

type AnalyzeTextInput struct {
	Text       string `json:"text" jsonschema:"full contract text"`
	SourceName string `json:"source_name,omitempty" jsonschema:"label for the result"`
}

type ExtractInput struct {
	Path string `json:"path" jsonschema:"path to a PDF or DOCX contract on the server's filesystem"`
}

type tools struct {
	reviewer Reviewer
	log      logrus.FieldLogger
}

// NewServer builds an MCP server with the three review tools registered.
func NewServer(reviewer Reviewer, version string, log logrus.FieldLogger) *mcp.Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if version == "" {
		version = "dev"
	}
	t := &tools{reviewer: reviewer, log: log}
	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_contract",
		Description: "Extract a PDF or DOCX contract and return a risk review: summary, key terms, red flags, risk scores and recommendations.",
	}, t.analyzeFile)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_contract_text",
		Description: "Run a risk review on contract text that is already extracted.",
	}, t.analyzeText)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "extract_contract_text",
		Description: "Extract text from a PDF or DOCX contract with statistics and a plausibility check. Does not call a model.",
	}, t.extract)
	return server
}

// Run serves on stdin/stdout until ctx ends or the client disconnects.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (t *tools) analyzeFile(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeFileInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := t.reviewer.ReviewFile(ctx, in.Path, in.SourceName)
	return t.respond("analyze_contract", start, res, err)
}

func (t *tools) analyzeText(ctx context.Context, _ *mcp.CallToolRequest, in AnalyzeTextInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	res, err := t.reviewer.ReviewText(ctx, in.Text, in.SourceName)
	return t.respond("analyze_contract_text", start, res, err)
}

func (t *tools) extract(_ context.Context, _ *mcp.CallToolRequest, in ExtractInput) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	ex, err := t.reviewer.ExtractFile(in.Path)
	return t.respond("extract_contract_text", start, ex, err)
}

// respond turns failures into IsError results so the client model sees
// the message instead of a protocol error.
func (t *tools) respond(tool string, start time.Time, payload any, err error) (*mcp.CallToolResult, any, error) {
	log := t.log.WithFields(logrus.Fields{"tool": tool, "elapsed_ms": time.Since(start).Milliseconds()})
	if err != nil {
		log.WithError(err).WithField("kind", common.KindOf(err)).Warn("mcp.tool_failed")
		return errorResult(err.Error()), nil, nil
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.WithError(err).Error("mcp.encode_failed")
		return errorResult("encode result: " + err.Error()), nil, nil
	}
	log.Info("mcp.tool_done")
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(body)}},
	}, nil, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
