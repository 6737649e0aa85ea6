package macro

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Outcome classifies the result of dispatching one invocation.
type Outcome int

const (
	// OK means the handler produced replacement text.
	OK Outcome = iota
	// NotFound means no handler is registered under the name in this table.
	NotFound
	// Failed means the handler returned an error; the literal text is kept.
	Failed
	// Aborted means the handler returned a FatalError; the run must stop.
	Aborted
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the outcome of Dispatch. Text is the replacement, which is the
// original invocation text for every outcome other than OK.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

// Dispatch looks up inv.Name in table and invokes its handler. Handler
// errors and panics degrade to the literal invocation text; only a
// FatalError or a cancelled context aborts.
func Dispatch(ctx context.Context, table *Table, run *Run, inv Invocation) Result {
	h, ok := table.Lookup(inv.Name)
	if !ok {
		return Result{Outcome: NotFound, Text: inv.Raw}
	}

	out, err := resolve(ctx, h, run, inv)
	if err != nil {
		var fe *FatalError
		if errors.As(err, &fe) {
			return Result{Outcome: Aborted, Text: inv.Raw, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{Outcome: Aborted, Text: inv.Raw, Err: Fatal(inv.Name, ctxErr)}
		}
		return Result{Outcome: Failed, Text: inv.Raw, Err: err}
	}
	return Result{Outcome: OK, Text: out}
}

func resolve(ctx context.Context, h Handler, run *Run, inv Invocation) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Resolve(ctx, run, inv)
}

// Substitute replaces every invocation found in text with its dispatch
// result. Replacements are not re-scanned. It returns an error only when a
// handler aborts the run or ctx is done.
func Substitute(ctx context.Context, text string, table *Table, run *Run) (string, error) {
	locs := Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return text, nil
	}

	log := run.Logger()
	var sb strings.Builder
	sb.Grow(len(text))
	last := 0
	for _, loc := range locs {
		if err := ctx.Err(); err != nil {
			return "", Fatal("", err)
		}
		inv := invocationAt(text, loc)
		res := Dispatch(ctx, table, run, inv)

		switch res.Outcome {
		case OK:
			log.Debug("dispatched command", "command", inv.Name)
			run.Stats.Resolved++
		case NotFound:
			if run.Registry != nil && len(run.Registry.Stages(inv.Name)) > 0 {
				log.Debug("command not handled at this stage, leaving intact", "command", inv.Name)
				run.Stats.Deferred++
			} else {
				log.Warn("unknown command, leaving intact", "command", inv.Name, "text", inv.Raw)
				run.Stats.Missing++
			}
		case Failed:
			log.Error("command failed, leaving intact", "command", inv.Name, "argument", inv.Argument, "error", res.Err)
			run.Stats.Failed++
		case Aborted:
			log.Error("command aborted run", "command", inv.Name, "error", res.Err)
			return "", res.Err
		}

		sb.WriteString(text[last:loc[0]])
		sb.WriteString(res.Text)
		last = loc[1]
	}
	sb.WriteString(text[last:])
	return sb.String(), nil
}
