package parser

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/docmacro/internal/doctree"
)

// CSVParser imports a CSV file as a single table; the first record is the
// header row.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) (*doctree.DocTree, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	tree := &doctree.DocTree{Title: trimExt(filename)}
	if len(records) > 0 {
		tree.Children = []*doctree.DocNode{{Rows: records}}
	}
	return tree, nil
}
