package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docmacro/internal/doctree"
)

// TextParser splits plain text into blank-line separated paragraphs.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s := newSections()
	var current strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			s.paragraph(current.String())
			current.Reset()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	s.paragraph(current.String())

	return s.tree(trimExt(filename)), nil
}
