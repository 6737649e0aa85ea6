// Package doctree holds the section tree of an imported document and renders
// it back as an HTML fragment.
package doctree

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

// DocTree is the root of a parsed document.
type DocTree struct {
	Title    string     // Document title (from metadata or filename)
	Children []*DocNode // Top-level sections
}

// DocNode is a recursive section in the document tree.
type DocNode struct {
	Title    string     // Section heading (empty for leaf text)
	Text     string     // Paragraphs separated by blank lines
	Rows     [][]string // Tabular content; the first row is the header
	Page     int        // Source page (0 if N/A)
	Children []*DocNode // Subsections
}

// RenderHTML writes the tree as headings and paragraphs. Top-level sections
// become <h2>, nested sections one level deeper each, down to <h6>. Heading
// ids are drawn from ids; a nil set makes them unique within tree only.
func RenderHTML(tree *DocTree, ids IDs) string {
	var sb strings.Builder
	if ids == nil {
		ids = make(IDs)
	}
	for _, n := range tree.Children {
		writeNode(&sb, n, 0, ids)
	}
	return sb.String()
}

func writeNode(sb *strings.Builder, n *DocNode, depth int, ids IDs) {
	if n.Title != "" {
		tag := "h" + strconv.Itoa(min(depth+2, 6))
		sb.WriteString("<" + tag + ` id="` + ids.Unique(Slugify(n.Title)) + `">`)
		sb.WriteString(html.EscapeString(n.Title))
		sb.WriteString("</" + tag + ">\n")
	}
	for _, para := range strings.Split(n.Text, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			sb.WriteString("<p>" + html.EscapeString(para) + "</p>\n")
		}
	}
	if len(n.Rows) > 0 {
		writeTable(sb, n.Rows)
	}
	for _, c := range n.Children {
		writeNode(sb, c, depth+1, ids)
	}
}

func writeTable(sb *strings.Builder, rows [][]string) {
	sb.WriteString("<table>\n<thead><tr>")
	for _, cell := range rows[0] {
		sb.WriteString("<th>" + html.EscapeString(cell) + "</th>")
	}
	sb.WriteString("</tr></thead>\n<tbody>\n")
	for _, row := range rows[1:] {
		sb.WriteString("<tr>")
		for _, cell := range row {
			sb.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>\n")
}

const maxSlugLen = 50

var (
	nonSlug = regexp.MustCompile(`[^a-z0-9-]`)
	dashes  = regexp.MustCompile(`-+`)
)

// Slugify lowercases s and collapses anything but letters and digits into
// single dashes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonSlug.ReplaceAllString(s, "-")
	s = dashes.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLen {
		s = strings.TrimRight(s[:maxSlugLen], "-")
	}
	if s == "" {
		s = "section"
	}
	return s
}

// IDs is the set of element ids used in one output document.
type IDs map[string]bool

// Unique returns slug, or slug suffixed with -2, -3, ... when already
// taken, and marks the result as used.
func (ids IDs) Unique(slug string) string {
	id := slug
	for n := 2; ids[id]; n++ {
		id = slug + "-" + strconv.Itoa(n)
	}
	ids[id] = true
	return id
}
