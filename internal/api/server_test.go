package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docmacro/internal/cache"
	"github.com/dgallion1/docmacro/internal/config"
	"github.com/dgallion1/docmacro/internal/handlers"
	"github.com/dgallion1/docmacro/internal/pipeline"
	"github.com/dgallion1/docmacro/internal/stats"
)

func newTestServer(t *testing.T, apiKey string, files map[string]string) *Server {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := stats.NewRegistry(time.Hour)
	reg := handlers.NewRegistry(handlers.Config{
		Gate:  cache.New(filepath.Join(t.TempDir(), "cache")),
		Stats: st,
	})
	cfg := config.Config{
		APIKey:          apiKey,
		BaseDir:         dir,
		MaxIncludeDepth: 8,
		MaxUploadBytes:  1024,
		StatsWindow:     time.Hour,
	}
	return NewServer(pipeline.NewProcessor(reg, log), st, log, cfg)
}

func post(t *testing.T, s *Server, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "secret", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRender(t *testing.T) {
	s := newTestServer(t, "", map[string]string{"greeting.txt": "there"})
	rec := post(t, s, "/api/render", "Hello {{include:greeting.txt}} world")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "Hello there world" {
		t.Errorf("expected rendered body, got %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html, got %q", ct)
	}
}

func TestRender_JSON(t *testing.T) {
	s := newTestServer(t, "", nil)
	rec := post(t, s, "/api/render?format=json", `<h2 id="a">A</h2>{{nope:x}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp renderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Output != `<h2 id="a">A</h2>{{nope:x}}` {
		t.Errorf("unexpected output %q", resp.Output)
	}
	if len(resp.Landmarks) != 1 || resp.Landmarks[0].Href != "a" {
		t.Errorf("unexpected landmarks %+v", resp.Landmarks)
	}
	if resp.Stats.Missing == 0 {
		t.Error("expected unknown command to be counted")
	}
}

func TestRender_StructureErrorIs422(t *testing.T) {
	s := newTestServer(t, "", nil)
	rec := post(t, s, "/api/render", "<h2>A</h2><h4>B</h4>")

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "A") || !strings.Contains(body, "B") {
		t.Errorf("expected error naming both headings, got %s", body)
	}
}

func TestRender_IncludeCycleIs400(t *testing.T) {
	s := newTestServer(t, "", map[string]string{"loop.txt": "{{include:loop.txt}}"})
	rec := post(t, s, "/api/render", "{{include:loop.txt}}")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRender_IncludeOutsideBaseIsLeftIntact(t *testing.T) {
	s := newTestServer(t, "", nil)
	rec := post(t, s, "/api/render", "{{include:../../etc/passwd}}")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "{{include:../../etc/passwd}}" {
		t.Errorf("expected literal invocation, got %q", got)
	}
}

func TestRender_TooLarge(t *testing.T) {
	s := newTestServer(t, "", nil)
	rec := post(t, s, "/api/render", strings.Repeat("x", 2048))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
}

func TestRender_Auth(t *testing.T) {
	s := newTestServer(t, "secret", nil)

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"valid", []string{"Authorization", "Bearer secret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, "/api/render", "plain", tt.header...)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestOutline(t *testing.T) {
	s := newTestServer(t, "", nil)
	rec := post(t, s, "/api/outline", `<h2 id="a">A</h2><h3 id="b">B</h3>`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
		Depth int `json:"depth"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 || resp.Depth != 2 {
		t.Errorf("expected count 2 depth 2, got %+v", resp)
	}
}

func TestRendererStats(t *testing.T) {
	s := newTestServer(t, "", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats/renderers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp["stats"]; !ok {
		t.Errorf("expected stats key, got %s", rec.Body.String())
	}
}
