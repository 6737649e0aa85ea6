// Package cache decides whether a cached render of a source file is still
// fresh and names the file that holds it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir is the cache directory used when none is configured, relative
// to the working directory.
const DefaultDir = ".docmacro-cache"

// Gate is a content-addressed staleness check keyed by source path.
// Concurrent writers to the same slot are not synchronized.
type Gate struct {
	dir string
}

// New returns a Gate storing slots under dir.
func New(dir string) *Gate {
	if dir == "" {
		dir = DefaultDir
	}
	return &Gate{dir: dir}
}

// Dir returns the cache directory.
func (g *Gate) Dir() string {
	return g.dir
}

// SlotPath returns the cache file for sourcePath. The name is derived from
// the path itself, not from the file contents.
func (g *Gate) SlotPath(sourcePath string) string {
	key := sourcePath
	if abs, err := filepath.Abs(sourcePath); err == nil {
		key = abs
	}
	sum := sha256.Sum256([]byte(filepath.Clean(key)))
	return filepath.Join(g.dir, hex.EncodeToString(sum[:]))
}

// Check reports whether the render of sourcePath must be recomputed and
// returns the slot that holds (or will hold) it. A recompute is needed when
// the slot is missing or empty, or when the source was modified after the
// slot was written.
func (g *Gate) Check(sourcePath string) (bool, string, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return true, "", fmt.Errorf("create cache dir: %w", err)
	}
	slot := g.SlotPath(sourcePath)

	src, err := os.Stat(sourcePath)
	if err != nil {
		return true, slot, fmt.Errorf("stat source: %w", err)
	}

	cached, err := os.Stat(slot)
	if err != nil {
		if os.IsNotExist(err) {
			return true, slot, nil
		}
		return true, slot, fmt.Errorf("stat cache slot: %w", err)
	}
	if cached.Size() == 0 {
		return true, slot, nil
	}
	if src.ModTime().After(cached.ModTime()) {
		return true, slot, nil
	}
	return false, slot, nil
}

// Load reads a cached render.
func (g *Gate) Load(slot string) ([]byte, error) {
	data, err := os.ReadFile(slot)
	if err != nil {
		return nil, fmt.Errorf("read cache slot: %w", err)
	}
	return data, nil
}

// Store replaces slot with data. The data is written to a temporary file in
// the cache directory first and renamed over the slot.
func (g *Gate) Store(slot string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(slot), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(slot), ".slot-*")
	if err != nil {
		return fmt.Errorf("create temp slot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp slot: %w", err)
	}
	if err := os.Rename(tmpPath, slot); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename slot: %w", err)
	}
	return nil
}
