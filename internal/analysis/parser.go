package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/common"
)

// Strategy names the recovery step that produced the decoded document.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategyFenced    Strategy = "fenced"
	StrategySubstring Strategy = "substring"
)

// ParsedResponse holds the fully defaulted fields of one model answer.
type ParsedResponse struct {
	Summary         string
	KeyTerms        map[string]string
	RedFlags        []RedFlag
	RiskScore       RiskScore
	Recommendations []string

	Strategy Strategy
	Warnings []string
}

type Parser struct {
	log logrus.FieldLogger
}

func NewParser(log logrus.FieldLogger) *Parser {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Parser{log: log}
}

// Parse decodes raw model output. It tries, in order, the contents of a
// leading code fence, the text as-is, and the span from the first '{' to
// the last '}'. Field problems below the top level are recorded as
// warnings; only an undecodable document is an error.
func (p *Parser) Parse(raw string) (*ParsedResponse, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, common.NewParseError("empty model output", raw, nil)
	}

	working := text
	strategy := StrategyDirect
	if seg, ok := stripCodeFence(working); ok {
		working = seg
		strategy = StrategyFenced
	}

	doc, err := decodeObject(working)
	if err != nil {
		p.log.WithError(err).Warn("parse.direct_failed")
		sub, ok := braceSubstring(working)
		if !ok {
			p.logFailure(text)
			return nil, common.NewParseError("no JSON object in model output", text, err)
		}
		doc, err = decodeObject(sub)
		if err != nil {
			p.logFailure(text)
			return nil, common.NewParseError("model output is not valid JSON", text, err)
		}
		strategy = StrategySubstring
	}

	out := shapeResponse(doc)
	out.Strategy = strategy

	violations, err := schemaViolations(doc)
	if err != nil {
		p.log.WithError(err).Error("parse.schema_unavailable")
	}
	for _, v := range violations {
		out.Warnings = append(out.Warnings, "schema "+v)
	}
	if len(out.Warnings) > 0 {
		p.log.WithFields(logrus.Fields{
			"strategy": strategy,
			"warnings": len(out.Warnings),
		}).Debug("parse.warnings")
	}
	return out, nil
}

func (p *Parser) logFailure(text string) {
	p.log.WithField("raw", common.Snippet(text, common.MaxSnippetRunes)).Error("parse.failed")
}

// stripCodeFence returns the first fenced segment that begins with '{'
// once an optional language tag line is dropped.
func stripCodeFence(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	for _, part := range strings.Split(s, "```") {
		seg := strings.TrimSpace(part)
		if seg == "" {
			continue
		}
		if !strings.HasPrefix(seg, "{") {
			if nl := strings.IndexByte(seg, '\n'); nl > 0 && isLanguageTag(seg[:nl]) {
				seg = strings.TrimSpace(seg[nl+1:])
			}
		}
		if strings.HasPrefix(seg, "{") {
			return seg, true
		}
	}
	return "", false
}

func isLanguageTag(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" || len(line) > 20 {
		return false
	}
	for _, r := range line {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// braceSubstring returns s from the first '{' through the last '}'.
func braceSubstring(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// decodeObject decodes exactly one JSON object. Numbers are kept as
// json.Number so stringified values keep their original spelling.
func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is %s, not an object", jsonKind(v))
	}
	return obj, nil
}

func shapeResponse(doc map[string]any) *ParsedResponse {
	out := &ParsedResponse{
		KeyTerms:        map[string]string{},
		RedFlags:        []RedFlag{},
		RiskScore:       DefaultRiskScore(),
		Recommendations: []string{},
	}
	warn := func(format string, args ...any) {
		out.Warnings = append(out.Warnings, fmt.Sprintf(format, args...))
	}

	out.Summary = stringify(doc["summary"])

	switch kt := doc["key_terms"].(type) {
	case nil:
	case map[string]any:
		for k, v := range kt {
			out.KeyTerms[k] = stringify(v)
		}
	default:
		warn("key_terms is %s, not an object", jsonKind(kt))
	}

	switch flags := doc["red_flags"].(type) {
	case nil:
	case []any:
		for i, item := range flags {
			m, ok := item.(map[string]any)
			if !ok {
				warn("red_flags[%d] is %s, skipped", i, jsonKind(item))
				continue
			}
			out.RedFlags = append(out.RedFlags, RedFlag{
				ClauseText:           stringify(m["clause_text"]),
				RiskType:             stringify(m["risk_type"]),
				Explanation:          stringify(m["explanation"]),
				WhyRisky:             stringify(m["why_risky"]),
				SuggestedAlternative: stringify(m["suggested_alternative"]),
				Severity:             CoerceRiskLevel(m["severity"]),
			})
		}
	default:
		warn("red_flags is %s, not an array", jsonKind(flags))
	}

	switch rs := doc["risk_score"].(type) {
	case nil:
	case map[string]any:
		out.RiskScore = RiskScore{
			FinancialRisk:  CoerceRiskLevel(rs["financial_risk"]),
			LegalExposure:  CoerceRiskLevel(rs["legal_exposure"]),
			Fairness:       CoerceRiskLevel(rs["fairness"]),
			MissingClauses: CoerceRiskLevel(rs["missing_clauses"]),
			OverallScore:   CoerceRiskLevel(rs["overall_score"]),
		}
	default:
		warn("risk_score is %s, not an object", jsonKind(rs))
	}

	switch recs := doc["recommendations"].(type) {
	case nil:
	case []any:
		for _, r := range recs {
			if r == nil {
				continue
			}
			out.Recommendations = append(out.Recommendations, stringify(r))
		}
	case string:
		out.Recommendations = append(out.Recommendations, recs)
		warn("recommendations is a string, not an array")
	default:
		warn("recommendations is %s, not an array", jsonKind(recs))
	}

	return out
}

// stringify renders a decoded JSON value as text. Arrays of strings are
// joined with "; "; other composites fall back to compact JSON.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return compactJSON(t)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "; ")
	default:
		return compactJSON(t)
	}
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case json.Number, float64:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
