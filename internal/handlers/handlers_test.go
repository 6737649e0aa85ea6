package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/docmacro/internal/cache"
	"github.com/dgallion1/docmacro/internal/landmark"
	"github.com/dgallion1/docmacro/internal/macro"
	"github.com/dgallion1/docmacro/internal/stats"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRun returns a run rooted at a fresh temp dir, with files written into
// it.
func newRun(t *testing.T, files map[string]string) (*macro.Run, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	reg := NewRegistry(Config{Gate: cache.New(filepath.Join(dir, ".cache"))})
	run := macro.NewRun(reg, quietLogger())
	run.BaseDir = dir
	return run, dir
}

func stage1(t *testing.T, run *macro.Run, in string) string {
	t.Helper()
	out, err := run.Substitute(context.Background(), in, macro.Stage1)
	if err != nil {
		t.Fatalf("stage1: %v", err)
	}
	return out
}

func stage2(t *testing.T, run *macro.Run, in string) string {
	t.Helper()
	out, err := run.Substitute(context.Background(), in, macro.Stage2)
	if err != nil {
		t.Fatalf("stage2: %v", err)
	}
	return out
}

func TestInclude_SplicesFile(t *testing.T) {
	run, _ := newRun(t, map[string]string{"greeting.txt": "there"})
	if got := stage1(t, run, "Hello {{include:greeting.txt}} world"); got != "Hello there world" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestInclude_Nested(t *testing.T) {
	run, _ := newRun(t, map[string]string{
		"outer.txt":       "[{{include:parts/inner.txt}}]",
		"parts/inner.txt": "inner",
	})
	if got := stage1(t, run, "{{include:outer.txt}}"); got != "[inner]" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestInclude_MissingFileIsContained(t *testing.T) {
	run, _ := newRun(t, nil)
	in := "a {{include:nope.txt}} b {{include:}}"
	if got := stage1(t, run, in); got != in {
		t.Errorf("expected literal text, got %q", got)
	}
	if run.Stats.Failed != 2 {
		t.Errorf("expected 2 failures, got %d", run.Stats.Failed)
	}
}

func TestInclude_CycleIsFatal(t *testing.T) {
	run, _ := newRun(t, map[string]string{"self.txt": "x {{include:self.txt}}"})
	_, err := run.Substitute(context.Background(), "{{include:self.txt}}", macro.Stage1)
	if !errors.Is(err, macro.ErrIncludeCycle) {
		t.Fatalf("expected ErrIncludeCycle, got %v", err)
	}
}

func TestTableOfContents(t *testing.T) {
	run, _ := newRun(t, nil)
	run.Landmarks = landmark.Forest{{Name: "Intro", Href: "a"}}
	got := stage2(t, run, "{{table of contents:}}|{{tableofcontents:}}")
	toc := `<ol class="tableofcontents"><li><a href="#a" class="_chapter">Intro</a></li></ol>`
	if got != toc+"|"+toc {
		t.Errorf("unexpected toc %q", got)
	}
}

func TestVerbatim_HiddenInStage1RevealedInStage2(t *testing.T) {
	run, _ := newRun(t, map[string]string{"x.txt": "X"})
	in := "{{verbatim:<h2>not a heading</h2>{{include:x.txt}}}}"
	mid := stage1(t, run, in)
	if strings.Contains(mid, "<h2>") {
		t.Fatalf("expected payload hidden after stage 1, got %q", mid)
	}
	forest, err := landmark.ExtractString(mid, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(forest) != 0 {
		t.Errorf("expected no landmarks from hidden payload, got %d", len(forest))
	}
	out := stage2(t, run, mid)
	// The payload ends at the first "}}", so the trailing braces survive as
	// plain text.
	if out != "<h2>not a heading</h2>{{include:x.txt}}" {
		t.Errorf("unexpected revealed payload %q", out)
	}
}

func TestVerbatim_MultilinePayload(t *testing.T) {
	run, _ := newRun(t, nil)
	out := stage2(t, run, stage1(t, run, "{{verbatim:a\n{b}\nc}}"))
	if out != "a\n{b}\nc" {
		t.Errorf("unexpected payload %q", out)
	}
}

const refsYAML = `
- id: knuth84
  author: [Donald E. Knuth]
  title: Literate Programming
  year: 1984
- id: lamport94
  author: [Leslie Lamport]
  title: LaTeX
  year: 1994
`

func TestCitations_AcrossStages(t *testing.T) {
	run, _ := newRun(t, map[string]string{"refs.yaml": refsYAML})
	in := "{{bibsource:refs.yaml}}See {{cite:lamport94}} and {{cite:knuth84, lamport94}}.{{bibliography:}}"
	mid := stage1(t, run, in)
	wantMid := `See <a class="citation" href="#ref-lamport94">[1]</a> and ` +
		`<a class="citation" href="#ref-knuth84">[2, 1]</a>.{{bibliography:}}`
	if mid != wantMid {
		t.Fatalf("unexpected stage 1 output:\n got %q\nwant %q", mid, wantMid)
	}
	out := stage2(t, run, mid)
	if !strings.Contains(out, `<ol class="bibliography"><li id="ref-lamport94">`) {
		t.Errorf("expected lamport94 listed first, got %q", out)
	}
	if strings.Index(out, `id="ref-lamport94"`) > strings.Index(out, `id="ref-knuth84"`) {
		t.Errorf("expected citation order in bibliography, got %q", out)
	}
}

func TestCitations_UnknownKeyIsContained(t *testing.T) {
	run, _ := newRun(t, map[string]string{"refs.yaml": refsYAML})
	out := stage1(t, run, "{{bibsource:refs.yaml}}{{cite:nobody99}}")
	if out != "{{cite:nobody99}}" {
		t.Errorf("expected literal cite, got %q", out)
	}
}

func TestBibliography_All(t *testing.T) {
	run, _ := newRun(t, map[string]string{"refs.yaml": refsYAML})
	stage1(t, run, "{{bibsource:refs.yaml}}")
	out := stage2(t, run, "{{bibliography:all}}")
	if strings.Count(out, "<li ") != 2 {
		t.Errorf("expected all sources listed, got %q", out)
	}
}

func TestMarkdown_RendersAndRecordsMeta(t *testing.T) {
	run, _ := newRun(t, map[string]string{
		"ch1.md":   "---\ntitle: Chapter One\ntags: [a, b]\n---\n## Getting Started\n\nSee {{include:note.txt}}.\n",
		"note.txt": "*the note*",
	})
	out := stage1(t, run, "{{markdown:ch1.md}}")
	if !strings.Contains(out, `<h2 id="getting-started">Getting Started</h2>`) {
		t.Errorf("expected heading with generated id, got %q", out)
	}
	if !strings.Contains(out, "<em>the note</em>") {
		t.Errorf("expected included markdown to be converted, got %q", out)
	}
	if strings.Contains(out, "title:") {
		t.Errorf("expected front matter stripped, got %q", out)
	}
	if got := stage2(t, run, "{{meta:title}}"); got != "Chapter One" {
		t.Errorf("expected meta title, got %q", got)
	}
	if got := stage2(t, run, "{{meta:tags}}"); got != "{{meta:tags}}" {
		t.Errorf("expected non-scalar meta to stay unresolved, got %q", got)
	}
}

func TestImport_TextAndCSV(t *testing.T) {
	run, _ := newRun(t, map[string]string{
		"notes.txt": "One & two.\n\nThree.",
		"data.csv":  "a,b\n1,2\n",
		"guide.md":  "# Setup\n\nDo it.\n",
	})
	if got := stage1(t, run, "{{import:notes.txt}}"); got != "<p>One &amp; two.</p>\n<p>Three.</p>\n" {
		t.Errorf("unexpected text import %q", got)
	}
	if got := stage1(t, run, "{{import:data.csv}}"); !strings.Contains(got, "<th>a</th><th>b</th>") {
		t.Errorf("unexpected csv import %q", got)
	}
	if got := stage1(t, run, "{{import:guide.md}}"); got != "<h2 id=\"setup\">Setup</h2>\n<p>Do it.</p>\n" {
		t.Errorf("unexpected markdown import %q", got)
	}
	if got := stage1(t, run, "{{import:tool.exe}}"); got != "{{import:tool.exe}}" {
		t.Errorf("expected unsupported import left intact, got %q", got)
	}
}

func TestHeadingIDs_UniqueAcrossIncludes(t *testing.T) {
	run, _ := newRun(t, map[string]string{
		"a.md":  "# Intro\n\nFirst.\n",
		"b.md":  "# Intro\n\nSecond.\n",
		"c.md":  "## Intro\n",
	})
	out := stage1(t, run, "{{import:a.md}}{{import:b.md}}{{markdown:c.md}}")
	for _, want := range []string{`<h2 id="intro">`, `<h2 id="intro-2">`, `<h2 id="intro-3">`} {
		if strings.Count(out, want) != 1 {
			t.Errorf("expected exactly one %s in %q", want, out)
		}
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRenderer_CachesOutput(t *testing.T) {
	requireShell(t)
	run, dir := newRun(t, map[string]string{"fig.dot": "digraph"})
	counter := filepath.Join(dir, "calls")
	st := stats.NewRegistry(time.Hour)
	r := &Renderer{
		Name:    "diagram",
		Command: []string{"sh", "-c", "echo x >> " + counter + "; tr a-z A-Z"},
		Gate:    cache.New(filepath.Join(dir, ".cache")),
		Stats:   st,
	}
	inv := macro.Find("{{diagram:fig.dot}}")[0]

	for i := 0; i < 2; i++ {
		out, err := r.Resolve(context.Background(), run, inv)
		if err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
		if out != "DIGRAPH" {
			t.Errorf("resolve %d: unexpected output %q", i, out)
		}
	}
	calls, _ := os.ReadFile(counter)
	if n := strings.Count(string(calls), "x"); n != 1 {
		t.Errorf("expected renderer to run once, ran %d times", n)
	}
	if st.Snapshot()["diagram"].Count != 1 {
		t.Errorf("expected one latency sample, got %+v", st.Snapshot())
	}

	// Touching the source invalidates the slot.
	future := time.Now().Add(time.Hour)
	os.Chtimes(filepath.Join(dir, "fig.dot"), future, future)
	if _, err := r.Resolve(context.Background(), run, inv); err != nil {
		t.Fatal(err)
	}
	calls, _ = os.ReadFile(counter)
	if n := strings.Count(string(calls), "x"); n != 2 {
		t.Errorf("expected re-render after touch, ran %d times", n)
	}
}

func TestRenderer_FailuresAreErrors(t *testing.T) {
	requireShell(t)
	run, dir := newRun(t, map[string]string{"f.tex": "x^2"})
	gate := cache.New(filepath.Join(dir, ".cache"))
	inv := macro.Find("{{math:f.tex}}")[0]

	tests := []struct {
		name    string
		command []string
		want    string
	}{
		{"exit status", []string{"sh", "-c", "echo bad formula >&2; exit 3"}, "bad formula"},
		{"empty output", []string{"sh", "-c", "cat >/dev/null"}, "empty output"},
		{"not configured", nil, "no math command configured"},
	}
	for _, tt := range tests {
		r := &Renderer{Name: "math", Command: tt.command, Gate: gate}
		_, err := r.Resolve(context.Background(), run, inv)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Errorf("%s: expected error containing %q, got %v", tt.name, tt.want, err)
		}
	}
}

func TestRenderer_Timeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	run, dir := newRun(t, map[string]string{"f.tex": "x"})
	r := &Renderer{
		Name:    "math",
		Command: []string{"sleep", "5"},
		Timeout: 50 * time.Millisecond,
		Gate:    cache.New(filepath.Join(dir, ".cache")),
	}
	_, err := r.Resolve(context.Background(), run, macro.Find("{{math:f.tex}}")[0])
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestNewRegistry_Tables(t *testing.T) {
	reg := NewRegistry(Config{})
	wantStage1 := []string{"include", "markdown", "import", "verbatim", "bibsource", "cite", "diagram", "math"}
	wantStage2 := []string{"tableofcontents", "table of contents", "verbatim", "bibliography", "meta"}
	if got := reg.Table(macro.Stage1).Names(); strings.Join(got, ",") != strings.Join(wantStage1, ",") {
		t.Errorf("stage 1 names %v, want %v", got, wantStage1)
	}
	if got := reg.Table(macro.Stage2).Names(); strings.Join(got, ",") != strings.Join(wantStage2, ",") {
		t.Errorf("stage 2 names %v, want %v", got, wantStage2)
	}
}
