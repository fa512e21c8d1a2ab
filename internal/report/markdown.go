// Package report renders a finished review as Markdown, HTML, PDF or XLSX.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joelkehle/contractreview/internal/analysis"
)

const Disclaimer = "This report was generated automatically from the contract text and is not legal advice. " +
	"Have a qualified lawyer review any agreement before you sign it."

// Document is everything a report shows about one review.
type Document struct {
	ID          string
	SourceName  string
	Model       string
	GeneratedAt time.Time
	Analysis    *analysis.ContractAnalysis
}

// keyTermOrder lists the conventional key terms in display order. Other
// keys follow alphabetically.
var keyTermOrder = []string{"parties", "effective_date", "duration", "payment_terms", "main_obligations", "termination"}

func Markdown(doc Document) string {
	a := doc.Analysis
	if a == nil {
		a = &analysis.ContractAnalysis{RiskScore: analysis.DefaultRiskScore()}
	}
	var b strings.Builder

	b.WriteString("# Contract Risk Review\n\n")
	if doc.SourceName != "" {
		fmt.Fprintf(&b, "**Document:** %s  \n", inline(doc.SourceName))
	}
	if doc.ID != "" {
		fmt.Fprintf(&b, "**Reference:** %s  \n", doc.ID)
	}
	if doc.Model != "" {
		fmt.Fprintf(&b, "**Model:** %s  \n", inline(doc.Model))
	}
	if !doc.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s  \n", doc.GeneratedAt.UTC().Format("January 2, 2006 15:04 MST"))
	}
	fmt.Fprintf(&b, "**Overall risk:** %s\n\n", levelLabel(a.RiskScore.OverallScore))
	fmt.Fprintf(&b, "> %s\n\n", Disclaimer)

	b.WriteString("## Summary\n\n")
	if s := strings.TrimSpace(a.Summary); s != "" {
		b.WriteString(s)
	} else {
		b.WriteString("_No summary was returned._")
	}
	b.WriteString("\n\n")

	b.WriteString("## Key Terms\n\n")
	keys := orderedKeyTerms(a.KeyTerms)
	if len(keys) == 0 {
		b.WriteString("_No key terms were identified._\n\n")
	} else {
		b.WriteString("| Term | Details |\n|---|---|\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %s |\n", humanize(k), cell(a.KeyTerms[k]))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Risk Score\n\n| Dimension | Rating |\n|---|---|\n")
	for _, row := range riskRows(a.RiskScore) {
		fmt.Fprintf(&b, "| %s | %s |\n", row.label, levelLabel(row.level))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Red Flags (%d)\n\n", len(a.RedFlags))
	if len(a.RedFlags) == 0 {
		b.WriteString("_No red flags were found._\n\n")
	}
	for i, f := range a.RedFlags {
		title := strings.TrimSpace(f.RiskType)
		if title == "" {
			title = "Unlabelled risk"
		}
		fmt.Fprintf(&b, "### %d. [%s] %s\n\n", i+1, levelLabel(f.Severity), inline(title))
		if c := strings.TrimSpace(f.ClauseText); c != "" {
			for _, line := range strings.Split(c, "\n") {
				fmt.Fprintf(&b, "> %s\n", line)
			}
			b.WriteString("\n")
		}
		writeField(&b, "What it means", f.Explanation)
		writeField(&b, "Why it is risky", f.WhyRisky)
		writeField(&b, "Suggested alternative", f.SuggestedAlternative)
	}

	b.WriteString("## Recommendations\n\n")
	if len(a.Recommendations) == 0 {
		b.WriteString("_No recommendations were returned._\n")
	}
	for i, r := range a.Recommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, inline(r))
	}
	if a.ProcessingTime > 0 {
		fmt.Fprintf(&b, "\n_Analysis took %.1f seconds._\n", a.ProcessingTime)
	}
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "**%s:** %s\n\n", label, inline(value))
}

type riskRow struct {
	label string
	level analysis.RiskLevel
}

func riskRows(rs analysis.RiskScore) []riskRow {
	return []riskRow{
		{"Financial risk", rs.FinancialRisk},
		{"Legal exposure", rs.LegalExposure},
		{"Fairness", rs.Fairness},
		{"Missing clauses", rs.MissingClauses},
		{"Overall", rs.OverallScore},
	}
}

func orderedKeyTerms(terms map[string]string) []string {
	seen := make(map[string]bool, len(terms))
	var keys []string
	for _, k := range keyTermOrder {
		if _, ok := terms[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range terms {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func levelLabel(l analysis.RiskLevel) string {
	if l == "" {
		l = analysis.RiskMedium
	}
	return strings.ToUpper(string(l))
}

// humanize turns "payment_terms" into "Payment Terms".
func humanize(key string) string {
	parts := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, p := range parts {
		r := []rune(p)
		parts[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(parts, " ")
}

func inline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	s = inline(s)
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
