// Package textnorm cleans raw text pulled out of contract documents before
// it is shown to the model.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRunRe     = regexp.MustCompile(` {2,}`)
	trailingSpace  = regexp.MustCompile(` +\n`)
	blankLineRunRe = regexp.MustCompile(`\n{3,}`)

	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	quotes      = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	)
)

// Normalize returns text with Unicode compatibility forms folded, control
// and format characters removed, whitespace and quotes canonicalized, and
// surrounding whitespace trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = norm.NFKC.String(text)
	text = strings.Map(dropControl, text)
	// Dropping a format character can leave a base and a combining mark
	// adjacent, so compose again.
	text = norm.NFKC.String(text)
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = lineEndings.Replace(text)
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankLineRunRe.ReplaceAllString(text, "\n\n")
	text = quotes.Replace(text)
	return strings.TrimSpace(text)
}

func dropControl(r rune) rune {
	switch r {
	case '\n', '\r', '\t':
		return r
	}
	if isOther(r) {
		return -1
	}
	return r
}

// isOther reports membership in the Unicode "C" general category, which
// includes unassigned code points.
func isOther(r rune) bool {
	if unicode.In(r, unicode.Cc, unicode.Cf, unicode.Co, unicode.Cs) {
		return true
	}
	return !unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z)
}
