package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/contractreview/internal/common"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func parse(t *testing.T, raw string) *ParsedResponse {
	t.Helper()
	out, err := NewParser(quietLogger()).Parse(raw)
	require.NoError(t, err)
	return out
}

func TestParseFencedJSON(t *testing.T) {
	out := parse(t, "```json\n{\"summary\":\"ok\",\"red_flags\":[]}\n```")

	assert.Equal(t, StrategyFenced, out.Strategy)
	assert.Equal(t, "ok", out.Summary)
	assert.Empty(t, out.RedFlags)
	assert.NotNil(t, out.RedFlags)
	assert.Equal(t, DefaultRiskScore(), out.RiskScore)
	assert.Equal(t, map[string]string{}, out.KeyTerms)
	assert.Equal(t, []string{}, out.Recommendations)
}

func TestParseFenceWithoutLanguageTag(t *testing.T) {
	out := parse(t, "```\n{\"summary\":\"plain fence\"}\n```\ntrailing note")
	assert.Equal(t, StrategyFenced, out.Strategy)
	assert.Equal(t, "plain fence", out.Summary)
}

func TestParseProseWrappedObject(t *testing.T) {
	out := parse(t, `Here is the result: {"summary":"x"} Thanks!`)
	assert.Equal(t, StrategySubstring, out.Strategy)
	assert.Equal(t, "x", out.Summary)
}

func TestParseDirect(t *testing.T) {
	out := parse(t, `  {"summary":"direct","risk_score":{"overall_score":"HIGH"}}  `)
	assert.Equal(t, StrategyDirect, out.Strategy)
	assert.Equal(t, RiskHigh, out.RiskScore.OverallScore)
	assert.Equal(t, RiskMedium, out.RiskScore.FinancialRisk)
}

func TestParseUnrecognizedSeverity(t *testing.T) {
	out := parse(t, `{"red_flags":[
		{"clause_text":"Fee of $500","risk_type":"Hidden Penalty","severity":"URGENT"},
		{"clause_text":"Auto renews","severity":" Low "},
		{"risk_type":"Missing"}
	]}`)

	require.Len(t, out.RedFlags, 3)
	assert.Equal(t, RiskMedium, out.RedFlags[0].Severity)
	assert.Equal(t, "Hidden Penalty", out.RedFlags[0].RiskType)
	assert.Equal(t, RiskLow, out.RedFlags[1].Severity)
	assert.Equal(t, "", out.RedFlags[1].Explanation)
	assert.Equal(t, RedFlag{RiskType: "Missing", Severity: RiskMedium}, out.RedFlags[2])
}

func TestParseSkipsMalformedRedFlags(t *testing.T) {
	out := parse(t, `{"summary":"s","red_flags":["not an object", {"clause_text":"kept"}, 7]}`)

	require.Len(t, out.RedFlags, 1)
	assert.Equal(t, "kept", out.RedFlags[0].ClauseText)
	assert.Contains(t, out.Warnings, "red_flags[0] is a string, skipped")
	assert.Contains(t, out.Warnings, "red_flags[2] is a number, skipped")
}

func TestParseRiskScoreFieldsDefaultIndependently(t *testing.T) {
	out := parse(t, `{"risk_score":{"financial_risk":"low","legal_exposure":42,"fairness":null,"overall_score":"high"}}`)
	assert.Equal(t, RiskScore{
		FinancialRisk:  RiskLow,
		LegalExposure:  RiskMedium,
		Fairness:       RiskMedium,
		MissingClauses: RiskMedium,
		OverallScore:   RiskHigh,
	}, out.RiskScore)
}

func TestParseStringifiesLooseValues(t *testing.T) {
	out := parse(t, `{
		"summary": "s",
		"key_terms": {"parties": ["Acme Corp", "Jane Doe"], "duration": 12, "auto_renew": true, "fees": {"setup": 100}, "termination": null},
		"recommendations": ["Negotiate a cap", null, 30, ["a", "b"]]
	}`)

	assert.Equal(t, map[string]string{
		"parties":     "Acme Corp; Jane Doe",
		"duration":    "12",
		"auto_renew":  "true",
		"fees":        `{"setup":100}`,
		"termination": "",
	}, out.KeyTerms)
	assert.Equal(t, []string{"Negotiate a cap", "30", "a; b"}, out.Recommendations)
}

func TestParseRecordsSchemaWarnings(t *testing.T) {
	out := parse(t, `{"summary": 5, "red_flags": [{"clause_text": "x", "risk_type": "y", "severity": "URGENT"}]}`)

	assert.Equal(t, "5", out.Summary)
	joined := strings.Join(out.Warnings, "\n")
	assert.Contains(t, joined, "schema /summary")
	assert.Contains(t, joined, "schema /red_flags/0/severity")
	assert.Contains(t, joined, "schema /:")
}

func TestParseCompleteDocumentHasNoWarnings(t *testing.T) {
	out := parse(t, `{
		"summary": "Consulting agreement.",
		"key_terms": {"parties": "A and B"},
		"red_flags": [{"clause_text": "c", "risk_type": "r", "explanation": "e", "why_risky": "w", "suggested_alternative": "s", "severity": "high"}],
		"risk_score": {"financial_risk": "low", "legal_exposure": "medium", "fairness": "high", "missing_clauses": "low", "overall_score": "medium"},
		"recommendations": ["Ask for a cap"]
	}`)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, RiskHigh, out.RedFlags[0].Severity)
}

func TestParseFailures(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":             "",
		"whitespace":        "  \n\t",
		"garbage":           "I could not analyze this document, sorry.",
		"broken braces":     "{summary: nope",
		"invalid substring": "see { this } and that",
		"top level array":   `[1, 2, 3]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser(quietLogger()).Parse(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrParse))
		})
	}
}

func TestParseErrorSnippetIsBounded(t *testing.T) {
	raw := "no json here " + strings.Repeat("x", 5000)
	_, err := NewParser(quietLogger()).Parse(raw)

	var ce *common.Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, common.MaxSnippetRunes, len([]rune(ce.Snippet)))
	assert.True(t, strings.HasPrefix(raw, ce.Snippet))
}

func TestStripCodeFence(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "```json\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{in: "```JSON\n{\"a\":1}```", want: `{"a":1}`, ok: true},
		{in: "```\n{\"a\":1}\n```", want: `{"a":1}`, ok: true},
		{in: "```text\nhello\n```\n```json\n{\"b\":2}\n```", want: `{"b":2}`, ok: true},
		{in: "```python\nprint(1)\n```", ok: false},
		{in: `{"a":1}`, ok: false},
	} {
		got, ok := stripCodeFence(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestBraceSubstring(t *testing.T) {
	got, ok := braceSubstring(`pre {"a":{"b":1}} post }`)
	assert.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}} post }`, got)

	_, ok = braceSubstring("} backwards {")
	assert.False(t, ok)
	_, ok = braceSubstring("none")
	assert.False(t, ok)
}

func TestCoerceRiskLevel(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want RiskLevel
	}{
		{"low", RiskLow},
		{"HIGH", RiskHigh},
		{" Medium\n", RiskMedium},
		{"URGENT", RiskMedium},
		{"", RiskMedium},
		{nil, RiskMedium},
		{3, RiskMedium},
		{true, RiskMedium},
	} {
		assert.Equal(t, tc.want, CoerceRiskLevel(tc.in), "%v", tc.in)
	}
}

func TestOutputSchemaJSONCompiles(t *testing.T) {
	schema, err := jsonschema.CompileString("contract_analysis.json", string(OutputSchemaJSON()))
	require.NoError(t, err)

	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{
		"summary": "ok",
		"key_terms": {"parties": "A and B"},
		"red_flags": [{"clause_text": "x", "risk_type": "y", "explanation": "e", "why_risky": "w", "suggested_alternative": "s", "severity": "High"}],
		"risk_score": {"financial_risk": "low", "legal_exposure": "low", "fairness": "medium", "missing_clauses": "low", "overall_score": "low"},
		"recommendations": ["r"]
	}`), &doc))
	assert.NoError(t, schema.Validate(doc))
}
