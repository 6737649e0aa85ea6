// Package parser converts foreign documents into section trees for the
// import command.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docmacro/internal/doctree"
)

// Parser converts raw document bytes into a DocTree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.DocTree, error)
}

// Options tunes individual parsers.
type Options struct {
	// PDFFallbackPdftotext retries text extraction with the pdftotext
	// binary when the Go PDF reader fails.
	PDFFallbackPdftotext bool
}

// SupportedExtensions lists file extensions that can be imported.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

func trimExt(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// sections builds a section tree from a stream of headings and text blocks.
// Each heading nests under the nearest preceding heading of a lower level.
type sections struct {
	root  *doctree.DocNode
	stack []sectionEntry
	text  strings.Builder
}

type sectionEntry struct {
	node  *doctree.DocNode
	level int
}

func newSections() *sections {
	root := &doctree.DocNode{}
	return &sections{root: root, stack: []sectionEntry{{node: root, level: 0}}}
}

func (s *sections) heading(level int, title string) {
	s.flush()
	n := &doctree.DocNode{Title: title}
	for len(s.stack) > 1 && s.stack[len(s.stack)-1].level >= level {
		s.stack = s.stack[:len(s.stack)-1]
	}
	parent := s.stack[len(s.stack)-1].node
	parent.Children = append(parent.Children, n)
	s.stack = append(s.stack, sectionEntry{node: n, level: level})
}

func (s *sections) paragraph(t string) {
	t = strings.TrimSpace(t)
	if t == "" {
		return
	}
	if s.text.Len() > 0 {
		s.text.WriteString("\n\n")
	}
	s.text.WriteString(t)
}

func (s *sections) flush() {
	t := s.text.String()
	s.text.Reset()
	if t == "" {
		return
	}
	top := s.stack[len(s.stack)-1].node
	if top.Text != "" {
		top.Text += "\n\n" + t
	} else {
		top.Text = t
	}
}

// tree finishes the build. Text before the first heading becomes a leading
// untitled section.
func (s *sections) tree(title string) *doctree.DocTree {
	s.flush()
	tree := &doctree.DocTree{Title: title, Children: s.root.Children}
	if s.root.Text != "" {
		tree.Children = append([]*doctree.DocNode{{Text: s.root.Text}}, tree.Children...)
	}
	return tree
}
