package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joelkehle/contractreview/internal/analysis"
)

func sampleDocument() Document {
	return Document{
		ID:          "6f1c",
		SourceName:  "saas-agreement.pdf",
		Model:       "gpt-4.1",
		GeneratedAt: time.Date(2026, 3, 1, 14, 5, 0, 0, time.UTC),
		Analysis: &analysis.ContractAnalysis{
			Summary: "A one year subscription agreement.",
			KeyTerms: map[string]string{
				"termination":   "90 days notice | written",
				"parties":       "Acme Corp and Customer",
				"governing_law": "Delaware",
			},
			RedFlags: []analysis.RedFlag{
				{
					ClauseText:           "This Agreement renews automatically.\nFees may rise.",
					RiskType:             "Auto-Renewal Trap",
					Explanation:          "It renews unless cancelled.",
					WhyRisky:             "Easy to miss the window.",
					SuggestedAlternative: "Renewal requires written consent.",
					Severity:             analysis.RiskHigh,
				},
				{RiskType: "", Severity: analysis.RiskLow},
			},
			RiskScore: analysis.RiskScore{
				FinancialRisk:  analysis.RiskHigh,
				LegalExposure:  analysis.RiskMedium,
				Fairness:       analysis.RiskLow,
				MissingClauses: analysis.RiskMedium,
				OverallScore:   analysis.RiskHigh,
			},
			Recommendations: []string{"Negotiate a 30-day cancellation window", "Cap fee increases"},
			ProcessingTime:  4.31,
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleDocument())

	assert.True(t, strings.HasPrefix(md, "# Contract Risk Review\n"))
	assert.Contains(t, md, "**Document:** saas-agreement.pdf")
	assert.Contains(t, md, "**Overall risk:** HIGH")
	assert.Contains(t, md, Disclaimer)
	assert.Contains(t, md, "| Termination | 90 days notice \\| written |")
	assert.Contains(t, md, "| Financial risk | HIGH |")
	assert.Contains(t, md, "## Red Flags (2)")
	assert.Contains(t, md, "### 1. [HIGH] Auto-Renewal Trap")
	assert.Contains(t, md, "> This Agreement renews automatically.\n> Fees may rise.\n")
	assert.Contains(t, md, "### 2. [LOW] Unlabelled risk")
	assert.Contains(t, md, "2. Cap fee increases")
	assert.Contains(t, md, "_Analysis took 4.3 seconds._")

	parties := strings.Index(md, "| Parties |")
	termination := strings.Index(md, "| Termination |")
	law := strings.Index(md, "| Governing Law |")
	assert.True(t, parties < termination && termination < law, "key term order")
}

func TestMarkdownEmptyAnalysis(t *testing.T) {
	md := Markdown(Document{})
	assert.Contains(t, md, "_No summary was returned._")
	assert.Contains(t, md, "## Red Flags (0)")
	assert.Contains(t, md, "_No recommendations were returned._")
	assert.Contains(t, md, "**Overall risk:** MEDIUM")
}

func TestHTML(t *testing.T) {
	page, err := HTML("Review <1>", Markdown(sampleDocument()))
	require.NoError(t, err)

	assert.Contains(t, page, "<title>Review &lt;1&gt;</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, `<h3 data-severity="high">1. [HIGH] Auto-Renewal Trap</h3>`)
	assert.Contains(t, page, `<h2 data-page-break-before="true">Recommendations</h2>`)
}

func TestApplyPrintLayoutHooksNoopWithoutMatches(t *testing.T) {
	in := "<h2>Summary</h2><h3>Notes</h3>"
	assert.Equal(t, in, applyPrintLayoutHooks(in))
}

func TestXLSX(t *testing.T) {
	b, err := XLSX(sampleDocument())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetSummary, sheetRedFlags, sheetRecommendations}, f.GetSheetList())

	summary, err := f.GetRows(sheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Document", "saas-agreement.pdf"}, summary[0])
	assert.Contains(t, summary, []string{"Overall", "HIGH"})
	assert.Contains(t, summary, []string{"Parties", "Acme Corp and Customer"})

	flags, err := f.GetRows(sheetRedFlags)
	require.NoError(t, err)
	require.Len(t, flags, 3)
	assert.Equal(t, "Severity", flags[0][1])
	assert.Equal(t, "HIGH", flags[1][1])
	assert.Equal(t, "Auto-Renewal Trap", flags[1][2])

	recs, err := f.GetRows(sheetRecommendations)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "Cap fee increases"}, recs[2])
}

func TestChromiumPDFRendererKeepsExplicitPath(t *testing.T) {
	r := NewChromiumPDFRenderer("/opt/chrome/chrome")
	assert.Equal(t, "/opt/chrome/chrome", r.chromePath)
	var _ PDFRenderer = r
}
