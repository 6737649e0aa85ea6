package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dgallion1/docmacro/internal/landmark"
	"github.com/dgallion1/docmacro/internal/macro"
)

type renderResponse struct {
	Output     string          `json:"output"`
	Landmarks  landmark.Forest `json:"landmarks"`
	Stats      macro.Stats     `json:"stats"`
	DurationMS int64           `json:"duration_ms"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	res, err := s.processor.Process(r.Context(), doc, s.runOptions())
	if err != nil {
		s.runError(r.Context(), w, err)
		return
	}

	if r.URL.Query().Get("format") == "json" {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(renderResponse{
			Output:     res.Output,
			Landmarks:  res.Landmarks,
			Stats:      res.Stats,
			DurationMS: res.Duration.Milliseconds(),
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, res.Output)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.readDocument(w, r)
	if !ok {
		return
	}

	forest, err := s.processor.Outline(r.Context(), doc, s.runOptions())
	if err != nil {
		s.runError(r.Context(), w, err)
		return
	}
	if forest == nil {
		forest = landmark.Forest{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"landmarks": forest,
		"count":     forest.Count(),
		"depth":     forest.Depth(),
	})
}

// readDocument reads the request body, or the "file" part of a multipart
// form, up to the configured limit.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (string, bool) {
	limit := s.cfg.MaxUploadBytes
	body := io.Reader(r.Body)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		// extra 1MB for form overhead
		r.Body = http.MaxBytesReader(w, r.Body, limit+1024*1024)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
			return "", false
		}
		defer r.MultipartForm.RemoveAll()

		file, _, err := r.FormFile("file")
		if err != nil {
			jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
			return "", false
		}
		defer file.Close()
		body = file
	}

	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		jsonError(w, "failed to read document", http.StatusBadRequest)
		return "", false
	}
	if int64(len(data)) > limit {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", limit), http.StatusRequestEntityTooLarge)
		return "", false
	}
	return string(data), true
}

// runError maps a failed run to a status code.
func (s *Server) runError(ctx context.Context, w http.ResponseWriter, err error) {
	var structErr *landmark.StructureError
	var fatalErr *macro.FatalError
	switch {
	case errors.As(err, &structErr):
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case ctx.Err() != nil:
		s.log.Warn("render cancelled", "error", err)
		jsonError(w, "request cancelled", http.StatusServiceUnavailable)
	case errors.As(err, &fatalErr):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("render failed", "error", err)
		jsonError(w, "render failed", http.StatusInternalServerError)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
