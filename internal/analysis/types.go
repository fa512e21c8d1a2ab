// Package analysis turns contract text into a structured risk assessment by
// way of a single remote model call and a tolerant response parser.
package analysis

import (
	"strings"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// CoerceRiskLevel maps untrusted input onto a RiskLevel. Anything that is
// not one of the three level names, after trimming and lowercasing,
// becomes RiskMedium.
func CoerceRiskLevel(raw any) RiskLevel {
	s, ok := raw.(string)
	if !ok {
		return RiskMedium
	}
	lvl := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if lvl.Valid() {
		return lvl
	}
	return RiskMedium
}

type RedFlag struct {
	ClauseText           string    `json:"clause_text"`
	RiskType             string    `json:"risk_type"`
	Explanation          string    `json:"explanation"`
	WhyRisky             string    `json:"why_risky"`
	SuggestedAlternative string    `json:"suggested_alternative"`
	Severity             RiskLevel `json:"severity"`
}

type RiskScore struct {
	FinancialRisk  RiskLevel `json:"financial_risk"`
	LegalExposure  RiskLevel `json:"legal_exposure"`
	Fairness       RiskLevel `json:"fairness"`
	MissingClauses RiskLevel `json:"missing_clauses"`
	OverallScore   RiskLevel `json:"overall_score"`
}

// DefaultRiskScore has every dimension at RiskMedium.
func DefaultRiskScore() RiskScore {
	return RiskScore{
		FinancialRisk:  RiskMedium,
		LegalExposure:  RiskMedium,
		Fairness:       RiskMedium,
		MissingClauses: RiskMedium,
		OverallScore:   RiskMedium,
	}
}

// ContractAnalysis is the result of one Analyze call. ProcessingTime is
// set once the remote call and parsing are finished.
type ContractAnalysis struct {
	Summary         string            `json:"summary"`
	KeyTerms        map[string]string `json:"key_terms"`
	RedFlags        []RedFlag         `json:"red_flags"`
	RiskScore       RiskScore         `json:"risk_score"`
	Recommendations []string          `json:"recommendations"`
	ProcessingTime  float64           `json:"processing_time"`
}

// ToMap renders the analysis as nested primitives in the shape returned to
// clients. Slices and maps are never nil.
func (a *ContractAnalysis) ToMap() map[string]any {
	keyTerms := make(map[string]any, len(a.KeyTerms))
	for k, v := range a.KeyTerms {
		keyTerms[k] = v
	}
	flags := make([]any, 0, len(a.RedFlags))
	for _, f := range a.RedFlags {
		flags = append(flags, map[string]any{
			"clause_text":           f.ClauseText,
			"risk_type":             f.RiskType,
			"explanation":           f.Explanation,
			"why_risky":             f.WhyRisky,
			"suggested_alternative": f.SuggestedAlternative,
			"severity":              string(f.Severity),
		})
	}
	recs := make([]any, 0, len(a.Recommendations))
	for _, r := range a.Recommendations {
		recs = append(recs, r)
	}
	return map[string]any{
		"summary":   a.Summary,
		"key_terms": keyTerms,
		"red_flags": flags,
		"risk_score": map[string]any{
			"financial_risk":  string(a.RiskScore.FinancialRisk),
			"legal_exposure":  string(a.RiskScore.LegalExposure),
			"fairness":        string(a.RiskScore.Fairness),
			"missing_clauses": string(a.RiskScore.MissingClauses),
			"overall_score":   string(a.RiskScore.OverallScore),
		},
		"recommendations": recs,
		"processing_time": a.ProcessingTime,
	}
}

// CountBySeverity tallies red flags per level.
func (a *ContractAnalysis) CountBySeverity() map[RiskLevel]int {
	out := map[RiskLevel]int{RiskHigh: 0, RiskMedium: 0, RiskLow: 0}
	for _, f := range a.RedFlags {
		out[f.Severity]++
	}
	return out
}
