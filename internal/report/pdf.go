package report

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFRenderer turns report markdown into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, title, markdown string) ([]byte, error)
}

// A4 in inches.
const (
	a4Width  = 8.27
	a4Height = 11.69
)

// ChromiumPDFRenderer prints the HTML report with a headless Chrome. Each
// Render starts its own browser, so one renderer can serve concurrent
// requests.
type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
}

// NewChromiumPDFRenderer uses chromePath when set, otherwise the first
// Chromium found on PATH, otherwise chromedp's own lookup.
func NewChromiumPDFRenderer(chromePath string) *ChromiumPDFRenderer {
	if chromePath == "" {
		chromePath = detectChromePath()
	}
	return &ChromiumPDFRenderer{chromePath: chromePath, timeout: 45 * time.Second}
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, title, markdown string) ([]byte, error) {
	doc, err := HTML(title, markdown)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var out []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("data:text/html;base64,"+base64.StdEncoding.EncodeToString([]byte(doc))),
		chromedp.WaitReady("main", chromedp.ByQuery),
		printA4(title, &out),
	)
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	return out, nil
}

func (r *ChromiumPDFRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	return opts
}

// printA4 prints with the document title in the header and page numbers
// in the footer.
func printA4(title string, out *[]byte) chromedp.ActionFunc {
	header := fmt.Sprintf(`<div style="width:100%%;padding:0 0.45in;font-size:8px;color:#888;">%s</div>`,
		html.EscapeString(title))
	footer := `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
		`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`
	return func(ctx context.Context) error {
		buf, _, err := page.PrintToPDF().
			WithPrintBackground(true).
			WithDisplayHeaderFooter(true).
			WithHeaderTemplate(header).
			WithFooterTemplate(footer).
			WithPaperWidth(a4Width).
			WithPaperHeight(a4Height).
			WithMarginTop(0.6).
			WithMarginBottom(0.7).
			WithMarginLeft(0.45).
			WithMarginRight(0.45).
			Do(ctx)
		if err != nil {
			return err
		}
		*out = buf
		return nil
	}
}

func detectChromePath() string {
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}
