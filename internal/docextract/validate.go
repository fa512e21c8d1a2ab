package docextract

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const DefaultMinLength = 100

// contractKeywords are matched as lowercase substrings, so "party" also hits "counterparty".
var contractKeywords = []string{
	"agreement", "contract", "party", "parties",
	"terms", "conditions", "hereby", "whereas",
	"signed", "effective", "termination",
}

type Validation struct {
	IsValid             bool     `json:"is_valid"`
	LengthOK            bool     `json:"length_ok"`
	HasContractKeywords bool     `json:"has_contract_keywords"`
	FoundKeywords       []string `json:"found_keywords"`
	Issues              []string `json:"issues"`
}

// ValidateContractText is a cheap plausibility check run before spending a
// model call. It never fails; problems are reported in Issues.
func ValidateContractText(text string, minLength int) Validation {
	v := Validation{FoundKeywords: []string{}, Issues: []string{}}

	n := utf8.RuneCountInString(text)
	if n < minLength {
		v.Issues = append(v.Issues, fmt.Sprintf("Text too short (%d chars, need %d)", n, minLength))
		return v
	}
	v.LengthOK = true

	lower := strings.ToLower(text)
	for _, kw := range contractKeywords {
		if strings.Contains(lower, kw) {
			v.FoundKeywords = append(v.FoundKeywords, kw)
		}
	}
	if len(v.FoundKeywords) < 2 {
		v.Issues = append(v.Issues, "Not enough contract keywords found")
		return v
	}
	v.HasContractKeywords = true
	v.IsValid = true
	return v
}
