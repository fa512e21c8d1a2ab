package common

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindUnsupportedFormat Kind = "unsupported_format"
	KindExtraction        Kind = "extraction"
	KindAnalysis          Kind = "analysis"
	KindParse             Kind = "parse"
	KindInternal          Kind = "internal"
)

// MaxSnippetRunes bounds the raw model output kept on a parse error.
const MaxSnippetRunes = 1000

// Error is the single failure type surfaced by extraction and analysis.
// Callers branch on Kind, either through errors.Is against the sentinels
// below or errors.As into *Error.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Snippet string
	Cause   error
}

var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrExtraction        = &Error{Kind: KindExtraction}
	ErrAnalysis          = &Error{Kind: KindAnalysis}
	ErrParse             = &Error{Kind: KindParse}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Path == "" && t.Cause == nil
}

func NewNotFoundError(path string) *Error {
	return &Error{Kind: KindNotFound, Message: "file not found", Path: path}
}

func NewUnsupportedFormatError(path, ext string) *Error {
	if ext == "" {
		ext = "(none)"
	}
	return &Error{Kind: KindUnsupportedFormat, Message: "unsupported file format " + ext, Path: path}
}

func NewExtractionError(path, message string, cause error) *Error {
	return &Error{Kind: KindExtraction, Message: message, Path: path, Cause: cause}
}

func NewAnalysisError(message string, cause error) *Error {
	return &Error{Kind: KindAnalysis, Message: message, Cause: cause}
}

func NewParseError(message, raw string, cause error) *Error {
	return &Error{Kind: KindParse, Message: message, Snippet: Snippet(raw, MaxSnippetRunes), Cause: cause}
}

// Snippet returns at most max runes of s.
func Snippet(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// KindOf reports the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func StatusFor(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindAnalysis, KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
