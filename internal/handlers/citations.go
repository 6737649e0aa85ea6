package handlers

import (
	"context"
	"fmt"

	"github.com/dgallion1/docmacro/internal/cite"
	"github.com/dgallion1/docmacro/internal/macro"
)

// BibSource loads a YAML source file into the run's citation library.
func BibSource(_ context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	path, err := run.Path(inv.Argument)
	if err != nil {
		return "", err
	}
	n, err := run.Citations.LoadFile(path)
	if err != nil {
		return "", err
	}
	run.Logger().Debug("loaded citation sources", "path", path, "count", n)
	return "", nil
}

// Cite records one or more comma-separated keys and renders the inline
// marker.
func Cite(_ context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	keys := inv.Args()
	if len(keys) == 0 {
		return "", fmt.Errorf("%w: citation key", macro.ErrMissingArgument)
	}
	return run.Citations.RenderInline(keys...)
}

// Bibliography renders the sources cited during stage 1, or every loaded
// source when the argument is "all".
func Bibliography(_ context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	if inv.Argument == "all" {
		return cite.RenderList(run.Citations.All()), nil
	}
	return cite.RenderList(run.Citations.Cited()), nil
}
