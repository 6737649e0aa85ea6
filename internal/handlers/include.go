package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/dgallion1/docmacro/internal/macro"
)

// Include splices in a file after expanding its own commands with the
// stage-1 table.
func Include(ctx context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	path, err := run.Path(inv.Argument)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read include: %w", err)
	}
	return run.Include(ctx, path, string(data))
}
