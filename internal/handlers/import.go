package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docmacro/internal/doctree"
	"github.com/dgallion1/docmacro/internal/macro"
	"github.com/dgallion1/docmacro/internal/parser"
)

// Import converts a foreign document (text, Markdown, CSV, HTML, PDF, DOCX)
// into an HTML fragment whose sections become headings.
type Import struct {
	Options parser.Options
}

func (h *Import) Resolve(_ context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	path, err := run.Path(inv.Argument)
	if err != nil {
		return "", err
	}
	if !parser.IsSupportedExtension(path) {
		return "", fmt.Errorf("unsupported import type %q", filepath.Ext(path))
	}
	p, err := parser.ForFile(path, h.Options)
	if err != nil {
		return "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open import: %w", err)
	}
	defer f.Close()

	tree, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return "", err
	}
	return doctree.RenderHTML(tree, run.HeadingIDs()), nil
}
