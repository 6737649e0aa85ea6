// Package pipeline runs the two-stage expansion of one document.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/docmacro/internal/landmark"
	"github.com/dgallion1/docmacro/internal/macro"
)

// Options configures a single run.
type Options struct {
	// Source is the path of the input document, if it came from a file.
	Source          string
	BaseDir         string
	Confine         bool
	MaxIncludeDepth int
	// Bibliography is a YAML source file loaded before stage 1.
	Bibliography string
}

// Result is the output of a completed run.
type Result struct {
	Output    string
	Landmarks landmark.Forest
	Stats     macro.Stats
	Duration  time.Duration
}

// Processor expands documents against a fixed command registry. The
// registry is shared; every call gets fresh run state.
type Processor struct {
	registry *macro.Registry
	log      *slog.Logger
}

func NewProcessor(reg *macro.Registry, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{registry: reg, log: log}
}

// Process runs stage 1, landmark extraction and stage 2 over input and
// returns the final document. A structural outline error or a fatal command
// error returns no output.
func (p *Processor) Process(ctx context.Context, input string, opts Options) (*Result, error) {
	start := time.Now()
	run, log, err := p.newRun(opts)
	if err != nil {
		return nil, err
	}

	text, err := p.firstPass(ctx, run, log, input)
	if err != nil {
		return nil, err
	}

	log.Info("phase", "phase", PhaseStage2)
	text, err = run.Substitute(ctx, text, macro.Stage2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseStage2, err)
	}

	res := &Result{
		Output:    text,
		Landmarks: run.Landmarks,
		Stats:     run.Stats,
		Duration:  time.Since(start),
	}
	log.Info("phase", "phase", PhaseDone,
		"landmarks", run.Landmarks.Count(),
		"resolved", run.Stats.Resolved,
		"missing", run.Stats.Missing,
		"failed", run.Stats.Failed,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// Outline runs stage 1 and landmark extraction only.
func (p *Processor) Outline(ctx context.Context, input string, opts Options) (landmark.Forest, error) {
	run, log, err := p.newRun(opts)
	if err != nil {
		return nil, err
	}
	if _, err := p.firstPass(ctx, run, log, input); err != nil {
		return nil, err
	}
	return run.Landmarks, nil
}

func (p *Processor) newRun(opts Options) (*macro.Run, *slog.Logger, error) {
	log := p.log
	if opts.Source != "" {
		log = log.With("source", opts.Source)
	}
	log.Info("phase", "phase", PhaseStart)

	run := macro.NewRun(p.registry, log)
	if opts.BaseDir != "" {
		run.BaseDir = opts.BaseDir
	}
	run.Confine = opts.Confine
	if opts.MaxIncludeDepth > 0 {
		run.MaxIncludeDepth = opts.MaxIncludeDepth
	}
	if opts.Source != "" {
		run.SetSource(opts.Source)
	}
	if opts.Bibliography != "" {
		n, err := run.Citations.LoadFile(opts.Bibliography)
		if err != nil {
			return nil, nil, fmt.Errorf("load bibliography: %w", err)
		}
		log.Debug("loaded bibliography", "path", opts.Bibliography, "sources", n)
	}
	return run, log, nil
}

// firstPass runs stage 1 and populates run.Landmarks from its output.
func (p *Processor) firstPass(ctx context.Context, run *macro.Run, log *slog.Logger, input string) (string, error) {
	log.Info("phase", "phase", PhaseStage1)
	text, err := run.Substitute(ctx, input, macro.Stage1)
	if err != nil {
		return "", fmt.Errorf("%s: %w", PhaseStage1, err)
	}

	log.Info("phase", "phase", PhaseLandmarks)
	forest, err := landmark.Extract(strings.NewReader(text), log)
	if err != nil {
		log.Error("outline rejected", "error", err)
		return "", fmt.Errorf("%s: %w", PhaseLandmarks, err)
	}
	run.Landmarks = forest
	log.Debug("extracted landmarks", "count", forest.Count(), "depth", forest.Depth())
	return text, nil
}
