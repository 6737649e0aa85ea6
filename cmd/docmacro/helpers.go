package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dgallion1/docmacro/internal/cache"
	"github.com/dgallion1/docmacro/internal/handlers"
	"github.com/dgallion1/docmacro/internal/parser"
	"github.com/dgallion1/docmacro/internal/pipeline"
	"github.com/dgallion1/docmacro/internal/stats"
)

// newProcessor wires the command registry from the loaded configuration.
func (a *app) newProcessor() (*pipeline.Processor, *stats.Registry) {
	st := stats.NewRegistry(a.cfg.StatsWindow)
	reg := handlers.NewRegistry(handlers.Config{
		Gate:           cache.New(a.cfg.CacheDir),
		Stats:          st,
		DiagramCommand: a.cfg.DiagramCommand,
		MathCommand:    a.cfg.MathCommand,
		RenderTimeout:  a.cfg.RenderTimeout,
		Parser:         parser.Options{PDFFallbackPdftotext: a.cfg.PDFFallbackPdftotext},
	})
	return pipeline.NewProcessor(reg, a.log), st
}

// options returns run options for a document read from source, or from
// stdin when source is empty.
func (a *app) options(source string) pipeline.Options {
	return pipeline.Options{
		Source:          source,
		BaseDir:         a.cfg.BaseDir,
		MaxIncludeDepth: a.cfg.MaxIncludeDepth,
		Bibliography:    a.cfg.Bibliography,
	}
}

// readInput returns the document named by args, or stdin when args is
// empty or "-".
func readInput(args []string, stdin io.Reader) (text, source string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read input: %w", err)
	}
	return string(data), args[0], nil
}

// writeOutput writes data to path, or to w when path is empty or "-".
// File output is written to a temp file and renamed into place, so a failed
// run never truncates an earlier result.
func writeOutput(path string, w io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".docmacro-out-*")
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
