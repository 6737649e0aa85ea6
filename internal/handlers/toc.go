package handlers

import (
	"context"
	"fmt"
	"html"

	"github.com/dgallion1/docmacro/internal/landmark"
	"github.com/dgallion1/docmacro/internal/macro"
)

// TableOfContents renders the landmark forest extracted after stage 1.
func TableOfContents(_ context.Context, run *macro.Run, _ macro.Invocation) (string, error) {
	return landmark.RenderTOC(run.Landmarks), nil
}

// Meta returns a front matter value recorded by the markdown command.
func Meta(_ context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	if inv.Argument == "" {
		return "", fmt.Errorf("%w: metadata key", macro.ErrMissingArgument)
	}
	v, ok := run.Meta[inv.Argument]
	if !ok {
		return "", fmt.Errorf("no metadata key %q", inv.Argument)
	}
	return html.EscapeString(v), nil
}
