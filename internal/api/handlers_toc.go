package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/pagetoc/internal/page"
	"github.com/dgallion1/pagetoc/internal/parser"
	"github.com/dgallion1/pagetoc/internal/pipeline"
	"github.com/dgallion1/pagetoc/internal/toc"
)

// handleTOC takes a full HTML page and returns it with the TOC inserted.
func (s *Server) handleTOC(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		jsonError(w, "empty body", http.StatusBadRequest)
		return
	}

	p, err := page.Parse(bytes.NewReader(data))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	start := time.Now()
	res := s.orchestrator.Builder().Build(p)
	if stats := s.orchestrator.Stats(); stats != nil {
		stats.Record(time.Since(start), string(res.Status))
	}

	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		jsonError(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	etag := `"` + pipeline.ContentHashHex(buf.Bytes())[:32] + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set(StatusHeader, string(res.Status))
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleOutline reads headings from an uploaded document and returns the
// outline they form, without rendering anything.
func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	p, err := parser.ForFileWith(filename, s.parserOpts)
	if err != nil {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	doc, err := p.Parse(io.LimitReader(file, s.cfg.MaxUploadBytes), filename)
	if err != nil {
		s.log.Warn("outline parse failed", "filename", filename, "error", err)
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	outline := toc.Build(doc.Headings)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"title":   doc.Title,
		"links":   outline.Links(),
		"outline": outline,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
