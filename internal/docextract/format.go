package docextract

import (
	"path/filepath"
	"strings"

	"github.com/joelkehle/contractreview/internal/common"
)

// Format is the closed set of document formats the extractor understands.
type Format int

const (
	FormatPDF Format = iota + 1
	FormatDOCX
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	default:
		return "unknown"
	}
}

// SupportedExtensions lists accepted extensions, lowercase with the dot.
// Legacy .doc files are routed through the DOCX reader.
var SupportedExtensions = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".doc":  FormatDOCX,
}

// Ext returns the lowercase extension of path including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func IsSupported(path string) bool {
	_, ok := SupportedExtensions[Ext(path)]
	return ok
}

func FormatForPath(path string) (Format, error) {
	ext := Ext(path)
	f, ok := SupportedExtensions[ext]
	if !ok {
		return 0, common.NewUnsupportedFormatError(path, ext)
	}
	return f, nil
}
