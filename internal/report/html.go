package report

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportCSS = `
body{font-family:-apple-system,"Segoe UI",Helvetica,Arial,sans-serif;color:#1c1917;background:#fff;margin:0;padding:0.6rem;line-height:1.45;font-size:13px;}
html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;}
.report{max-width:960px;margin:0 auto;border-left:3px solid #1e3a8a;padding:0 0.9rem;}
h1{font-size:1.6rem;margin:0.4rem 0 0.6rem;}
h2{font-size:1.15rem;border-bottom:1px solid #d6d3d1;padding-bottom:0.2rem;margin-top:1.4rem;}
h3{font-size:1rem;margin-bottom:0.3rem;}
h3[data-severity="high"]{color:#b91c1c;}
h3[data-severity="medium"]{color:#b45309;}
h3[data-severity="low"]{color:#15803d;}
blockquote{margin:0.4rem 0;padding:0.3rem 0.7rem;border-left:3px solid #a8a29e;background:#f5f5f4;color:#44403c;}
table{width:100%;border-collapse:collapse;border:1px solid #a8a29e;font-size:0.85rem;}
th,td{border:1px solid #a8a29e;padding:0.35rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;font-weight:700;}
h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}
@media print{@page{size:auto;margin:12mm;} body{padding:0;} .report{max-width:none;}}
`

var (
	reSeverityHeading = regexp.MustCompile(`<h3([^>]*)>(\s*\d+\.\s*\[(HIGH|MEDIUM|LOW)\])`)
	reRecommendations = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Recommendations\s*</h2>`)
)

// MarkdownToHTML converts GFM markdown to an HTML fragment.
func MarkdownToHTML(markdown string) (string, error) {
	var out strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return applyPrintLayoutHooks(out.String()), nil
}

// HTML renders a complete standalone page for markdown.
func HTML(title, markdown string) (string, error) {
	body, err := MarkdownToHTML(markdown)
	if err != nil {
		return "", err
	}
	if title == "" {
		title = "Contract Risk Review"
	}
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + reportCSS + "</style></head><body><main class='report'>" + body + "</main></body></html>", nil
}

// applyPrintLayoutHooks tags red flag headings with their severity and
// starts the recommendations on a fresh page when printed.
func applyPrintLayoutHooks(contentHTML string) string {
	out := reSeverityHeading.ReplaceAllStringFunc(contentHTML, func(m string) string {
		sub := reSeverityHeading.FindStringSubmatch(m)
		return `<h3` + sub[1] + ` data-severity="` + strings.ToLower(sub[3]) + `">` + sub[2]
	})
	return reRecommendations.ReplaceAllString(out, `<h2$1 data-page-break-before="true">Recommendations</h2>`)
}
