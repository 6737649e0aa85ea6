package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docmacro/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser imports Markdown as plain sections using goldmark. Use the
// markdown command instead to keep the formatting.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	s := newSections()
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			s.heading(h.Level, extractText(h, src))
			continue
		}
		s.paragraph(extractText(n, src))
	}
	return s.tree(trimExt(filename)), nil
}

// extractText gets the text content of a goldmark AST node. Leaf blocks
// such as code blocks carry their text in lines; other nodes in inline
// children.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeText(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeText(buf *bytes.Buffer, n ast.Node, src []byte) {
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			writeText(buf, c, src)
			if c.Type() == ast.TypeBlock {
				buf.WriteByte('\n')
			}
		}
	}
}
