package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/joelkehle/contractreview/internal/analysis"
)

const (
	sheetSummary         = "Summary"
	sheetRedFlags        = "Red Flags"
	sheetRecommendations = "Recommendations"
)

// XLSX returns a workbook with Summary, Red Flags and Recommendations
// sheets.
func XLSX(doc Document) ([]byte, error) {
	a := doc.Analysis
	if a == nil {
		a = &analysis.ContractAnalysis{RiskScore: analysis.DefaultRiskScore()}
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetRedFlags, sheetRecommendations} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	// Summary: label/value pairs.
	rows := [][]any{
		{"Document", doc.SourceName},
		{"Reference", doc.ID},
		{"Model", doc.Model},
	}
	if !doc.GeneratedAt.IsZero() {
		rows = append(rows, []any{"Generated", doc.GeneratedAt.UTC().Format("2006-01-02 15:04:05")})
	}
	rows = append(rows, []any{"Summary", a.Summary})
	for _, r := range riskRows(a.RiskScore) {
		rows = append(rows, []any{r.label, levelLabel(r.level)})
	}
	for _, k := range orderedKeyTerms(a.KeyTerms) {
		rows = append(rows, []any{humanize(k), a.KeyTerms[k]})
	}
	rows = append(rows, []any{"Processing time (s)", a.ProcessingTime})
	if err := writeRows(f, sheetSummary, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheetSummary, "A", "A", 22)
	_ = f.SetColWidth(sheetSummary, "B", "B", 90)

	rows = [][]any{{"#", "Severity", "Risk Type", "Clause", "What It Means", "Why Risky", "Suggested Alternative"}}
	for i, fl := range a.RedFlags {
		rows = append(rows, []any{i + 1, levelLabel(fl.Severity), fl.RiskType, fl.ClauseText, fl.Explanation, fl.WhyRisky, fl.SuggestedAlternative})
	}
	if err := writeRows(f, sheetRedFlags, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheetRedFlags, "A", "A", 5)
	_ = f.SetColWidth(sheetRedFlags, "B", "B", 10)
	_ = f.SetColWidth(sheetRedFlags, "C", "C", 24)
	_ = f.SetColWidth(sheetRedFlags, "D", "G", 48)

	rows = [][]any{{"#", "Recommendation"}}
	for i, r := range a.Recommendations {
		rows = append(rows, []any{i + 1, r})
	}
	if err := writeRows(f, sheetRecommendations, rows); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(sheetRecommendations, "B", "B", 90)

	idx, _ := f.GetSheetIndex(sheetSummary)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("%s %s: %w", sheet, cell, err)
			}
		}
	}
	return nil
}
