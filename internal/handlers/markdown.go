package handlers

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/docmacro/internal/doctree"
	"github.com/dgallion1/docmacro/internal/macro"
)

// markdownEngine renders GFM with generated heading ids, so imported
// sections link from the table of contents. Raw HTML is passed through.
var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Markdown includes a Markdown file as HTML. Front matter is stripped and
// its scalar values are recorded for the meta command; the body's commands
// are expanded with the stage-1 table before conversion.
func Markdown(ctx context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	path, err := run.Path(inv.Argument)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read markdown: %w", err)
	}

	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(data), &meta)
	if err != nil {
		return "", fmt.Errorf("parse frontmatter: %w", err)
	}
	for k, v := range meta {
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		run.Meta[k] = fmt.Sprint(v)
	}

	expanded, err := run.Include(ctx, path, string(body))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	pctx := parser.NewContext(parser.WithIDs(headingIDs{run.HeadingIDs()}))
	if err := markdownEngine.Convert([]byte(expanded), &buf, parser.WithContext(pctx)); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return buf.String(), nil
}

// headingIDs lets goldmark draw auto heading ids from the run, so headings
// from separate includes never share an id.
type headingIDs struct {
	ids doctree.IDs
}

func (h headingIDs) Generate(value []byte, _ ast.NodeKind) []byte {
	return []byte(h.ids.Unique(doctree.Slugify(string(value))))
}

func (h headingIDs) Put(value []byte) {
	h.ids[string(value)] = true
}
