package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joelkehle/contractreview/internal/analysis"
	"github.com/joelkehle/contractreview/internal/apiclient"
	"github.com/joelkehle/contractreview/internal/app"
	"github.com/joelkehle/contractreview/internal/config"
	"github.com/joelkehle/contractreview/internal/logger"
	"github.com/joelkehle/contractreview/internal/report"
	"github.com/joelkehle/contractreview/internal/review"
)

type options struct {
	configPath  string
	jsonOut     bool
	extractOnly bool
	schema      bool
	pdfPath     string
	xlsxPath    string
	mdPath      string
	noNormalize bool
	textInput   bool
	serverURL   string
	input       string
}

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run returns the process exit code. All cleanup happens before it
// returns.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}
	if err := execute(ctx, opts, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "contract-review: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("contract-review", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Path to a YAML config file (default: ./contractreview.yaml if present)")
	fs.BoolVar(&o.jsonOut, "json", false, "Print the review as JSON instead of markdown")
	fs.BoolVar(&o.extractOnly, "extract-only", false, "Only extract and check the text, no model call")
	fs.BoolVar(&o.schema, "schema", false, "Print the JSON schema the model is asked to follow and exit")
	fs.StringVar(&o.pdfPath, "pdf", "", "Also write a PDF report to this path")
	fs.StringVar(&o.xlsxPath, "xlsx", "", "Also write an XLSX workbook to this path")
	fs.StringVar(&o.mdPath, "output", "", "Write the markdown report here instead of stdout")
	fs.BoolVar(&o.noNormalize, "no-normalize", false, "Skip text normalization")
	fs.BoolVar(&o.textInput, "text", false, "Treat the input as a plain text file and skip extraction")
	fs.StringVar(&o.serverURL, "server", "", "Send the document to a running contract-server instead of calling the model locally")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: contract-review [flags] <contract.pdf|contract.docx>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.schema {
		return o, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return o, errUsage
	}
	o.input = fs.Arg(0)
	return o, nil
}

func execute(ctx context.Context, o options, stdout, stderr io.Writer) error {
	if o.schema {
		_, err := fmt.Fprintln(stdout, string(analysis.OutputSchemaJSON()))
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if o.noNormalize {
		cfg.Extract.NormalizeText = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// stdout carries the report.
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File, Stderr: true}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	var remote *apiclient.Client
	var svc *app.Service
	if o.serverURL != "" {
		remote = apiclient.NewClient(o.serverURL)
	} else {
		svc, err = app.NewService(cfg, logger.Log, app.Options{NeedModel: !o.extractOnly})
		if err != nil {
			return err
		}
		defer svc.Close()
	}

	if o.extractOnly {
		var ex *review.Extraction
		if remote != nil {
			ex, err = remote.Extract(ctx, o.input)
		} else {
			ex, err = svc.ExtractFile(o.input)
		}
		if err != nil {
			return fmt.Errorf("extract %s: %w", o.input, err)
		}
		return printExtraction(stdout, stderr, ex, o.jsonOut)
	}

	var res *review.Result
	switch {
	case o.textInput:
		text, rerr := os.ReadFile(o.input)
		if rerr != nil {
			return fmt.Errorf("read input: %w", rerr)
		}
		if remote != nil {
			res, err = remote.AnalyzeText(ctx, string(text), filepath.Base(o.input))
		} else {
			res, err = svc.ReviewText(ctx, string(text), filepath.Base(o.input))
		}
	case remote != nil:
		res, err = remote.AnalyzeFile(ctx, o.input)
	default:
		res, err = svc.ReviewFile(ctx, o.input, "")
	}
	if err != nil {
		return fmt.Errorf("review %s: %w", o.input, err)
	}

	markdown := report.Markdown(res.ReportDocument())
	if o.jsonOut {
		if err := printJSON(stdout, res); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
	} else if err := writeMarkdown(stdout, o.mdPath, markdown); err != nil {
		return fmt.Errorf("write markdown: %w", err)
	}

	if o.pdfPath != "" {
		out, err := report.NewChromiumPDFRenderer(cfg.Report.ChromePath).Render(ctx, res.SourceName, markdown)
		if err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		if err := os.WriteFile(o.pdfPath, out, 0o644); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		logger.Log.WithField("path", o.pdfPath).Info("report.pdf_written")
	}
	if o.xlsxPath != "" {
		out, err := report.XLSX(res.ReportDocument())
		if err != nil {
			return fmt.Errorf("build xlsx: %w", err)
		}
		if err := os.WriteFile(o.xlsxPath, out, 0o644); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		logger.Log.WithField("path", o.xlsxPath).Info("report.xlsx_written")
	}
	return nil
}

func printExtraction(stdout, stderr io.Writer, ex *review.Extraction, asJSON bool) error {
	if asJSON {
		return printJSON(stdout, ex)
	}
	if _, err := fmt.Fprintln(stdout, ex.Text); err != nil {
		return err
	}
	fmt.Fprintf(stderr, "\n%d characters, %d words, %d paragraphs\n", ex.Stats.Characters, ex.Stats.Words, ex.Stats.Paragraphs)
	if !ex.Validation.IsValid {
		fmt.Fprintf(stderr, "warning: %s\n", strings.Join(ex.Validation.Issues, "; "))
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMarkdown(stdout io.Writer, outputPath, markdown string) error {
	if outputPath == "" {
		_, err := io.WriteString(stdout, markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
