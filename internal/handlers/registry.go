// Package handlers implements the commands available to documents.
package handlers

import (
	"time"

	"github.com/dgallion1/docmacro/internal/cache"
	"github.com/dgallion1/docmacro/internal/macro"
	"github.com/dgallion1/docmacro/internal/parser"
	"github.com/dgallion1/docmacro/internal/stats"
)

// Config carries the collaborators shared by all runs.
type Config struct {
	Gate           *cache.Gate
	Stats          *stats.Registry
	DiagramCommand []string
	MathCommand    []string
	RenderTimeout  time.Duration
	Parser         parser.Options
}

// NewRegistry builds the stage-1 and stage-2 command tables.
func NewRegistry(cfg Config) *macro.Registry {
	if cfg.Gate == nil {
		cfg.Gate = cache.New(cache.DefaultDir)
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.NewRegistry(time.Hour)
	}

	reg := macro.NewRegistry()

	s1 := reg.Table(macro.Stage1)
	s1.RegisterFunc("include", Include)
	s1.RegisterFunc("markdown", Markdown)
	s1.Register("import", &Import{Options: cfg.Parser})
	s1.RegisterFunc("verbatim", HideVerbatim)
	s1.RegisterFunc("bibsource", BibSource)
	s1.RegisterFunc("cite", Cite)
	s1.Register("diagram", &Renderer{
		Name:    "diagram",
		Command: cfg.DiagramCommand,
		Timeout: cfg.RenderTimeout,
		Gate:    cfg.Gate,
		Stats:   cfg.Stats,
	})
	s1.Register("math", &Renderer{
		Name:    "math",
		Command: cfg.MathCommand,
		Timeout: cfg.RenderTimeout,
		Gate:    cfg.Gate,
		Stats:   cfg.Stats,
	})

	s2 := reg.Table(macro.Stage2)
	s2.RegisterFunc("tableofcontents", TableOfContents)
	s2.RegisterFunc("table of contents", TableOfContents)
	s2.RegisterFunc("verbatim", RevealVerbatim)
	s2.RegisterFunc("bibliography", Bibliography)
	s2.RegisterFunc("meta", Meta)

	return reg
}
