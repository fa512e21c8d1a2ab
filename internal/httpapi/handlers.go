package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/joelkehle/contractreview/internal/docextract"
	"github.com/joelkehle/contractreview/internal/report"
)

type analyzeTextRequest struct {
	Text       string `json:"text"`
	SourceName string `json:"source_name"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	if isMultipart(r) {
		path, name, cleanup, ok := s.receiveUpload(w, r)
		if !ok {
			return
		}
		defer cleanup()
		res, err := s.reviewer.ReviewFile(ctx, path, name)
		if err != nil {
			s.writeReviewError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "review": res})
		return
	}

	var req analyzeTextRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_json", "body must be JSON with a text field or a multipart upload")
		return
	}
	res, err := s.reviewer.ReviewText(ctx, req.Text, req.SourceName)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "review": res})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "expected a multipart upload with a file field")
		return
	}
	path, name, cleanup, ok := s.receiveUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()
	ex, err := s.reviewer.ExtractFile(path)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	ex.File.Filename = name
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "extraction": ex})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	records, err := s.reviewer.List(r.Context(), parseInt(r.URL.Query().Get("limit"), 50))
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "analyses": records})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := s.reviewer.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "review": res})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.reviewer.Delete(r.Context(), id); err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": id})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	res, err := s.reviewer.Get(r.Context(), id)
	if err != nil {
		s.writeReviewError(w, r, err)
		return
	}
	doc := res.ReportDocument()
	md := report.Markdown(doc)
	base := "contract-review-" + id

	format := strings.ToLower(r.URL.Query().Get("format"))
	switch format {
	case "", "md", "markdown":
		writeFile(w, "text/markdown; charset=utf-8", base+".md", []byte(md))
	case "html":
		page, err := report.HTML(res.SourceName, md)
		if err != nil {
			s.writeReviewError(w, r, err)
			return
		}
		writeFile(w, "text/html; charset=utf-8", "", []byte(page))
	case "pdf":
		if s.pdf == nil {
			writeError(w, r, http.StatusNotImplemented, "pdf_unavailable", "PDF rendering is not configured")
			return
		}
		out, err := s.pdf.Render(r.Context(), res.SourceName, md)
		if err != nil {
			s.log.WithError(err).Error("http.pdf_render_failed")
			writeError(w, r, http.StatusInternalServerError, "pdf_failed", "PDF rendering failed")
			return
		}
		writeFile(w, "application/pdf", base+".pdf", out)
	case "xlsx":
		out, err := report.XLSX(doc)
		if err != nil {
			s.writeReviewError(w, r, err)
			return
		}
		writeFile(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", base+".xlsx", out)
	default:
		writeError(w, r, http.StatusBadRequest, "invalid_format", fmt.Sprintf("unknown report format %q", format))
	}
}

func writeFile(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// receiveUpload stores the "file" part in a fresh temp dir under its own
// base name, so extension checks and reported file names match the
// upload. It writes the error response itself when ok is false.
func (s *Server) receiveUpload(w http.ResponseWriter, r *http.Request) (path, name string, cleanup func(), ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "too_large", "upload too large")
		} else {
			writeError(w, r, http.StatusBadRequest, "invalid_upload", "could not read multipart form")
		}
		return "", "", nil, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "missing_file", "multipart field \"file\" is required")
		return "", "", nil, false
	}
	defer file.Close()

	name = filepath.Base(strings.ReplaceAll(header.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	if !docextract.IsSupported(name) {
		writeError(w, r, http.StatusUnsupportedMediaType, "unsupported_format",
			fmt.Sprintf("unsupported file format %q", docextract.Ext(name)))
		return "", "", nil, false
	}

	dir, err := os.MkdirTemp("", "contract-upload-*")
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "could not store upload")
		return "", "", nil, false
	}
	cleanup = func() { _ = os.RemoveAll(dir) }
	path = filepath.Join(dir, name)
	out, err := os.Create(path)
	if err == nil {
		_, err = io.Copy(out, file)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		cleanup()
		writeError(w, r, http.StatusInternalServerError, "internal", "could not store upload")
		return "", "", nil, false
	}
	return path, name, cleanup, true
}
