// Package docextract pulls plain text out of contract documents and offers
// cheap heuristics over the result.
package docextract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joelkehle/contractreview/internal/common"
	"github.com/joelkehle/contractreview/internal/textnorm"
)

const DefaultMaxFileBytes = 20 * 1024 * 1024

// PDFReader returns the raw text of every page in document order. Pages
// without a text layer come back as empty strings.
type PDFReader interface {
	ReadPages(path string) ([]string, error)
}

// DOCXReader returns the raw text of every paragraph in document order.
type DOCXReader interface {
	ReadParagraphs(path string) ([]string, error)
}

type Config struct {
	NormalizeText bool
	// MaxFileBytes rejects larger files before parsing. Zero means DefaultMaxFileBytes.
	MaxFileBytes int64
}

type Extractor struct {
	cfg  Config
	pdf  PDFReader
	docx DOCXReader
	log  logrus.FieldLogger
}

type Option func(*Extractor)

func WithPDFReader(r PDFReader) Option {
	return func(e *Extractor) { e.pdf = r }
}

func WithDOCXReader(r DOCXReader) Option {
	return func(e *Extractor) { e.docx = r }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Extractor) { e.log = l }
}

func NewExtractor(cfg Config, opts ...Option) *Extractor {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	e := &Extractor{
		cfg:  cfg,
		pdf:  LedongthucPDFReader{},
		docx: ZipDOCXReader{},
		log:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractText returns the text of the document at path. An empty result is
// not an error; callers decide whether empty text is fatal. The text is
// normalized only when both normalize and Config.NormalizeText are set.
func (e *Extractor) ExtractText(path string, normalize bool) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", common.NewNotFoundError(path)
		}
		return "", common.NewExtractionError(path, "stat failed", err)
	}
	if info.IsDir() {
		return "", common.NewNotFoundError(path)
	}
	format, err := FormatForPath(path)
	if err != nil {
		return "", err
	}
	if info.Size() > e.cfg.MaxFileBytes {
		return "", common.NewExtractionError(path, fmt.Sprintf("file too large: %d bytes", info.Size()), nil)
	}

	log := e.log.WithFields(logrus.Fields{"path": path, "format": format.String()})
	log.Info("extract.start")

	var text string
	switch format {
	case FormatPDF:
		text, err = e.extractPDF(path, log)
	case FormatDOCX:
		text, err = e.extractDOCX(path, log)
	}
	if err != nil {
		return "", err
	}

	if normalize && e.cfg.NormalizeText {
		text = textnorm.Normalize(text)
	}
	log.WithField("chars", len(text)).Info("extract.done")
	return text, nil
}

func (e *Extractor) extractPDF(path string, log logrus.FieldLogger) (string, error) {
	pages, err := e.pdf.ReadPages(path)
	if err != nil {
		return "", common.NewExtractionError(path, "pdf extraction failed", err)
	}
	kept := make([]string, 0, len(pages))
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			log.WithField("page", i+1).Debug("extract.pdf.page_skipped")
			continue
		}
		kept = append(kept, p)
	}
	text := strings.Join(kept, "\n")
	if strings.TrimSpace(text) == "" {
		log.WithField("pages", len(pages)).Warn("extract.pdf.no_text")
		return "", nil
	}
	return text, nil
}

func (e *Extractor) extractDOCX(path string, log logrus.FieldLogger) (string, error) {
	paragraphs, err := e.docx.ReadParagraphs(path)
	if err != nil {
		return "", common.NewExtractionError(path, "docx extraction failed", err)
	}
	kept := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		log.Warn("extract.docx.no_text")
		return "", nil
	}
	return strings.Join(kept, "\n"), nil
}
