package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dgallion1/docmacro/internal/cache"
	"github.com/dgallion1/docmacro/internal/macro"
	"github.com/dgallion1/docmacro/internal/stats"
)

// Renderer pipes a source file through an external command and caches the
// output. The command reads the source on stdin and writes the rendering
// to stdout.
type Renderer struct {
	Name    string
	Command []string
	Timeout time.Duration
	Gate    *cache.Gate
	Stats   *stats.Registry
}

func (r *Renderer) Resolve(ctx context.Context, run *macro.Run, inv macro.Invocation) (string, error) {
	if len(r.Command) == 0 {
		return "", fmt.Errorf("no %s command configured", r.Name)
	}
	path, err := run.Path(inv.Argument)
	if err != nil {
		return "", err
	}
	log := run.Logger().With("renderer", r.Name, "path", path)

	needs, slot, err := r.Gate.Check(path)
	if err != nil {
		return "", err
	}
	if !needs {
		data, err := r.Gate.Load(slot)
		if err == nil {
			log.Debug("cache hit")
			return string(data), nil
		}
		log.Warn("cache read failed, rendering", "error", err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read source: %w", err)
	}
	out, err := r.render(ctx, src)
	if err != nil {
		return "", err
	}
	if err := r.Gate.Store(slot, out); err != nil {
		log.Warn("cache write failed", "error", err)
	}
	log.Debug("rendered", "bytes", len(out))
	return string(out), nil
}

func (r *Renderer) render(ctx context.Context, src []byte) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	if r.Stats != nil {
		r.Stats.For(r.Name).Record(time.Since(start))
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: timed out after %s", r.Command[0], r.Timeout)
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", r.Command[0], err, msg)
		}
		return nil, fmt.Errorf("%s: %w", r.Command[0], err)
	}
	if len(bytes.TrimSpace(stdout.Bytes())) == 0 {
		return nil, fmt.Errorf("%s: empty output", r.Command[0])
	}
	return stdout.Bytes(), nil
}
