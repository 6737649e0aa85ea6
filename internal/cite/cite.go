// Package cite keeps a library of citation sources and the ordered list of
// citations made while expanding one document.
package cite

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned when a citation names a source that was never
// loaded.
var ErrUnknownKey = errors.New("unknown citation key")

// Source is one bibliography entry.
type Source struct {
	ID        string   `yaml:"id"`
	Authors   []string `yaml:"author"`
	Title     string   `yaml:"title"`
	Year      int      `yaml:"year"`
	Publisher string   `yaml:"publisher"`
	Container string   `yaml:"container"`
	URL       string   `yaml:"url"`
}

// Ledger holds the loaded sources and the keys cited so far, in first-use
// order. A Ledger belongs to a single run.
type Ledger struct {
	sources map[string]Source
	order   []string
	number  map[string]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		sources: make(map[string]Source),
		number:  make(map[string]int),
	}
}

// Load reads a YAML list of sources and adds them to the library. Sources
// with an id already present replace the earlier entry.
func (l *Ledger) Load(r io.Reader) (int, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sources []Source
	if err := dec.Decode(&sources); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode sources: %w", err)
	}
	for i, s := range sources {
		s.ID = strings.TrimSpace(s.ID)
		if s.ID == "" {
			return 0, fmt.Errorf("source %d: missing id", i)
		}
		l.sources[s.ID] = s
	}
	return len(sources), nil
}

// LoadFile is Load over the contents of path.
func (l *Ledger) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read sources: %w", err)
	}
	return l.Load(bytes.NewReader(data))
}

// Len returns the number of loaded sources.
func (l *Ledger) Len() int {
	return len(l.sources)
}

// Cite registers keys and returns their citation numbers. A key cited before
// keeps its original number.
func (l *Ledger) Cite(keys ...string) ([]int, error) {
	for _, k := range keys {
		if _, ok := l.sources[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, k)
		}
	}
	nums := make([]int, 0, len(keys))
	for _, k := range keys {
		n, ok := l.number[k]
		if !ok {
			l.order = append(l.order, k)
			n = len(l.order)
			l.number[k] = n
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// Cited returns the cited sources in citation order.
func (l *Ledger) Cited() []Source {
	out := make([]Source, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.sources[k])
	}
	return out
}

// All returns every loaded source sorted by id.
func (l *Ledger) All() []Source {
	out := make([]Source, 0, len(l.sources))
	for _, s := range l.sources {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RenderInline renders the citation marker for keys, e.g. "[1, 3]".
func (l *Ledger) RenderInline(keys ...string) (string, error) {
	if len(keys) == 0 {
		return "", errors.New("no citation keys")
	}
	nums, err := l.Cite(keys...)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(`<a class="citation" href="#ref-`)
	sb.WriteString(html.EscapeString(keys[0]))
	sb.WriteString(`">[`)
	for i, n := range nums {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Itoa(n))
	}
	sb.WriteString(`]</a>`)
	return sb.String(), nil
}

// RenderList renders sources as an ordered bibliography.
func RenderList(sources []Source) string {
	var sb strings.Builder
	sb.WriteString(`<ol class="bibliography">`)
	for _, s := range sources {
		sb.WriteString(`<li id="ref-`)
		sb.WriteString(html.EscapeString(s.ID))
		sb.WriteString(`">`)
		sb.WriteString(formatEntry(s))
		sb.WriteString(`</li>`)
	}
	sb.WriteString(`</ol>`)
	return sb.String()
}

func formatEntry(s Source) string {
	var parts []string
	if len(s.Authors) > 0 {
		author := html.EscapeString(strings.Join(s.Authors, ", "))
		if s.Year > 0 {
			author += " (" + strconv.Itoa(s.Year) + ")"
		}
		parts = append(parts, author)
	} else if s.Year > 0 {
		parts = append(parts, "("+strconv.Itoa(s.Year)+")")
	}
	title := html.EscapeString(s.Title)
	if s.URL != "" {
		title = `<a href="` + html.EscapeString(s.URL) + `">` + title + `</a>`
	}
	parts = append(parts, "<em>"+title+"</em>")
	if s.Container != "" {
		parts = append(parts, html.EscapeString(s.Container))
	}
	if s.Publisher != "" {
		parts = append(parts, html.EscapeString(s.Publisher))
	}
	return strings.Join(parts, ". ") + "."
}
