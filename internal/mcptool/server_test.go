package mcptool

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/contractreview/internal/analysis"
	"github.com/joelkehle/contractreview/internal/docextract"
	"github.com/joelkehle/contractreview/internal/review"
)

const contractText = "THIS SERVICES AGREEMENT is entered into by and between the parties below. " +
	"The Provider shall perform the services under the terms and conditions set out herein."

type pagesReader []string

func (p pagesReader) ReadPages(string) ([]string, error) { return p, nil }

type fakeAnalyzer struct{}

func (fakeAnalyzer) Model() string { return "fake-model" }

func (fakeAnalyzer) Analyze(context.Context, string) (*analysis.ContractAnalysis, error) {
	return &analysis.ContractAnalysis{
		Summary:   "Services agreement.",
		RedFlags:  []analysis.RedFlag{{RiskType: "Auto Renewal", Severity: analysis.RiskMedium}},
		RiskScore: analysis.DefaultRiskScore(),
	}, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	ex := docextract.NewExtractor(docextract.Config{},
		docextract.WithPDFReader(pagesReader{contractText}),
		docextract.WithLogger(quietLogger()))
	svc := review.NewService(ex, fakeAnalyzer{}, review.Config{MinLength: 100}, review.WithLogger(quietLogger()))
	server := NewServer(svc, "test", quietLogger())

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func call(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return res, text.Text
}

func pdfPath(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "msa.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4 placeholder"), 0o644))
	return p
}

func TestListTools(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"analyze_contract", "analyze_contract_text", "extract_contract_text"}, names)
}

func TestAnalyzeContract(t *testing.T) {
	cs := connect(t)
	res, text := call(t, cs, "analyze_contract", map[string]any{"path": pdfPath(t)})
	require.False(t, res.IsError, text)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "msa.pdf", out["source_name"])
	assert.Equal(t, "fake-model", out["model"])
	a := out["analysis"].(map[string]any)
	assert.Equal(t, "Services agreement.", a["summary"])
}

func TestAnalyzeContractText(t *testing.T) {
	cs := connect(t)
	res, text := call(t, cs, "analyze_contract_text", map[string]any{"text": contractText, "source_name": "pasted msa"})
	require.False(t, res.IsError, text)
	assert.Contains(t, text, `"source_name": "pasted msa"`)
}

func TestExtractContractText(t *testing.T) {
	cs := connect(t)
	res, text := call(t, cs, "extract_contract_text", map[string]any{"path": pdfPath(t)})
	require.False(t, res.IsError, text)

	var out review.Extraction
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, contractText, out.Text)
	assert.True(t, out.Validation.IsValid)
}

func TestToolFailuresAreErrorResults(t *testing.T) {
	cs := connect(t)

	res, text := call(t, cs, "analyze_contract", map[string]any{"path": "/no/such/contract.pdf"})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "not_found")

	notes := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o644))
	res, text = call(t, cs, "extract_contract_text", map[string]any{"path": notes})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "unsupported")

	res, text = call(t, cs, "analyze_contract_text", map[string]any{"text": "  "})
	assert.True(t, res.IsError)
	assert.Contains(t, text, "contract text is empty")
}
