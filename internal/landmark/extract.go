package landmark

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// Extract parses doc leniently as HTML and builds the landmark forest from
// its h2-h6 headings in document order.
func Extract(r io.Reader, log *slog.Logger) (Forest, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}

	b := &builder{log: log}
	var walk func(*html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode && isHeadingTag(n.Data) {
			// Nested headings are not considered.
			return b.add(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return nil, err
	}
	return b.forest, nil
}

// ExtractString is Extract over an in-memory document.
func ExtractString(doc string, log *slog.Logger) (Forest, error) {
	return Extract(strings.NewReader(doc), log)
}

type open struct {
	node  *Landmark
	depth int
	tag   string
}

// builder keeps the chain of currently open ancestors, one per depth.
type builder struct {
	log    *slog.Logger
	forest Forest
	stack  []open
	prev   open
	seen   bool
}

func (b *builder) add(n *html.Node) error {
	name := innerHTML(n)
	depth, ok := headingTags[n.Data]
	if !ok {
		b.log.Warn("heading level not supported, skipping", "tag", n.Data, "name", name)
		return nil
	}

	if b.seen && depth > b.prev.depth+1 {
		return &StructureError{
			PrevTag:  b.prev.tag,
			PrevName: b.prev.node.Name,
			Tag:      n.Data,
			Name:     name,
		}
	}

	l := &Landmark{Name: name, Href: attr(n, "id")}
	b.log.Debug("found heading", "tag", n.Data, "name", name)

	for len(b.stack) > 0 && b.stack[len(b.stack)-1].depth >= depth {
		b.stack = b.stack[:len(b.stack)-1]
	}
	if len(b.stack) == 0 {
		b.forest = append(b.forest, l)
	} else {
		parent := b.stack[len(b.stack)-1].node
		parent.Children = append(parent.Children, l)
	}
	b.prev = open{node: l, depth: depth, tag: n.Data}
	b.seen = true
	b.stack = append(b.stack, b.prev)
	return nil
}

func isHeadingTag(tag string) bool {
	return len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6'
}

// innerHTML serializes the children of n back to markup.
func innerHTML(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			continue
		}
	}
	return strings.TrimSpace(buf.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
