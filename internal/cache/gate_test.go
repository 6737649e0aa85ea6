package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestGate_MissingSlotNeedsRecompute(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dot")
	writeFile(t, src, "digraph{}")

	g := New(filepath.Join(dir, "cache"))
	needs, slot, err := g.Check(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !needs {
		t.Error("expected recompute for missing slot")
	}
	if filepath.Dir(slot) != g.Dir() {
		t.Errorf("expected slot inside %s, got %s", g.Dir(), slot)
	}
	if _, err := os.Stat(g.Dir()); err != nil {
		t.Errorf("expected cache dir to be created: %v", err)
	}
}

func TestGate_FreshSlotIsReused(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dot")
	writeFile(t, src, "digraph{}")

	g := New(filepath.Join(dir, "cache"))
	_, slot, err := g.Check(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.Store(slot, []byte("<svg/>")); err != nil {
		t.Fatalf("store: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(src, base, base); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(slot, base.Add(time.Second), base.Add(time.Second)); err != nil {
		t.Fatal(err)
	}

	needs, _, err := g.Check(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if needs {
		t.Error("expected fresh slot to be reused")
	}

	data, err := g.Load(slot)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(data) != "<svg/>" {
		t.Errorf("expected cached content, got %q", data)
	}
}

func TestGate_TouchedSourceNeedsRecompute(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dot")
	writeFile(t, src, "digraph{}")

	g := New(filepath.Join(dir, "cache"))
	_, slot, _ := g.Check(src)
	if err := g.Store(slot, []byte("<svg/>")); err != nil {
		t.Fatalf("store: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	if err := os.Chtimes(slot, base, base); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(src, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	needs, _, err := g.Check(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !needs {
		t.Error("expected recompute after touching source")
	}
}

func TestGate_EqualModTimeIsFresh(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dot")
	writeFile(t, src, "digraph{}")

	g := New(filepath.Join(dir, "cache"))
	_, slot, _ := g.Check(src)
	if err := g.Store(slot, []byte("out")); err != nil {
		t.Fatalf("store: %v", err)
	}
	ts := time.Now().Add(-time.Hour)
	os.Chtimes(src, ts, ts)
	os.Chtimes(slot, ts, ts)

	if needs, _, _ := g.Check(src); needs {
		t.Error("expected slot with equal mtime to be fresh")
	}
}

func TestGate_EmptySlotNeedsRecompute(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.dot")
	writeFile(t, src, "digraph{}")

	g := New(filepath.Join(dir, "cache"))
	slot := g.SlotPath(src)
	os.MkdirAll(g.Dir(), 0o755)
	writeFile(t, slot, "")
	future := time.Now().Add(time.Hour)
	os.Chtimes(slot, future, future)

	if needs, _, _ := g.Check(src); !needs {
		t.Error("expected recompute for empty slot")
	}
}

func TestGate_MissingSourceIsError(t *testing.T) {
	g := New(t.TempDir())
	if _, _, err := g.Check(filepath.Join(t.TempDir(), "nope.dot")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestGate_SlotPathIsDeterministic(t *testing.T) {
	g := New("cache")
	a := g.SlotPath("figs/a.dot")
	if a != g.SlotPath("figs/./a.dot") {
		t.Error("expected equivalent paths to share a slot")
	}
	if a == g.SlotPath("figs/b.dot") {
		t.Error("expected different paths to use different slots")
	}
	if !strings.HasPrefix(a, "cache") {
		t.Errorf("expected slot under cache dir, got %s", a)
	}
}

func TestGate_StoreReplacesSlot(t *testing.T) {
	g := New(t.TempDir())
	slot := g.SlotPath("x")
	if err := g.Store(slot, []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := g.Store(slot, []byte("two")); err != nil {
		t.Fatal(err)
	}
	data, _ := g.Load(slot)
	if string(data) != "two" {
		t.Errorf("expected replaced content, got %q", data)
	}
	entries, _ := os.ReadDir(g.Dir())
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}
