package macro

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docmacro/internal/cite"
	"github.com/dgallion1/docmacro/internal/doctree"
	"github.com/dgallion1/docmacro/internal/landmark"
)

// DefaultMaxIncludeDepth bounds nested inclusion when no limit is set.
const DefaultMaxIncludeDepth = 32

// Stats counts dispatch outcomes over a run.
type Stats struct {
	Resolved int `json:"resolved"`
	Deferred int `json:"deferred"`
	Missing  int `json:"missing"`
	Failed   int `json:"failed"`
}

// Run is the state of expanding one document. Handlers read and mutate it;
// it must not be shared between concurrent expansions.
type Run struct {
	Registry  *Registry
	Landmarks landmark.Forest
	Citations *cite.Ledger
	Meta      map[string]string
	Stats     Stats

	// BaseDir anchors relative argument paths. When Confine is set, paths
	// resolving outside BaseDir are rejected.
	BaseDir         string
	Confine         bool
	MaxIncludeDepth int

	Log *slog.Logger

	source string
	chain  []string
	ids    doctree.IDs
}

// NewRun returns an empty run over reg.
func NewRun(reg *Registry, log *slog.Logger) *Run {
	return &Run{
		Registry:        reg,
		Citations:       cite.NewLedger(),
		Meta:            make(map[string]string),
		BaseDir:         ".",
		MaxIncludeDepth: DefaultMaxIncludeDepth,
		Log:             log,
	}
}

// Logger returns the run logger, or the default logger when none is set.
func (r *Run) Logger() *slog.Logger {
	if r == nil || r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

// HeadingIDs returns the heading ids handed out so far in this run.
// Generated headings draw from it so ids stay unique across the whole
// document.
func (r *Run) HeadingIDs() doctree.IDs {
	if r.ids == nil {
		r.ids = make(doctree.IDs)
	}
	return r.ids
}

// Substitute runs the table of stage over text.
func (r *Run) Substitute(ctx context.Context, text string, stage Stage) (string, error) {
	return Substitute(ctx, text, r.Registry.Table(stage), r)
}

// Path resolves a command argument naming a file.
func (r *Run) Path(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("%w: file path", ErrMissingArgument)
	}
	base := r.BaseDir
	if base == "" {
		base = "."
	}
	p := arg
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)
	if r.Confine {
		absBase, err := filepath.Abs(base)
		if err != nil {
			return "", err
		}
		absPath, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(absBase, absPath)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrEscapesBase, arg)
		}
	}
	return p, nil
}

// SetSource records path as the document being expanded, so that a file
// including the top-level document is reported as a cycle.
func (r *Run) SetSource(path string) {
	r.source = chainKey(path)
}

// Include expands text, the contents of path, with the stage-1 table.
// Including a file already on the include chain, or nesting deeper than
// MaxIncludeDepth, aborts the run.
func (r *Run) Include(ctx context.Context, path, text string) (string, error) {
	key := chainKey(path)
	active := r.chain
	if r.source != "" {
		active = append([]string{r.source}, r.chain...)
	}
	for _, p := range active {
		if p == key {
			cycle := strings.Join(append(append([]string(nil), active...), key), " -> ")
			return "", Fatal("include", fmt.Errorf("%w: %s", ErrIncludeCycle, cycle))
		}
	}
	limit := r.MaxIncludeDepth
	if limit <= 0 {
		limit = DefaultMaxIncludeDepth
	}
	if len(r.chain) >= limit {
		return "", Fatal("include", fmt.Errorf("%w: %d levels at %s", ErrIncludeDepth, limit, path))
	}

	r.chain = append(r.chain, key)
	defer func() { r.chain = r.chain[:len(r.chain)-1] }()

	r.Logger().Debug("including file", "path", path, "depth", len(r.chain))
	return r.Substitute(ctx, text, Stage1)
}

func chainKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
