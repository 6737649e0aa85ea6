package macro

import (
	"context"
	"fmt"
)

// Handler resolves one invocation to replacement text.
type Handler interface {
	Resolve(ctx context.Context, run *Run, inv Invocation) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, run *Run, inv Invocation) (string, error)

func (f HandlerFunc) Resolve(ctx context.Context, run *Run, inv Invocation) (string, error) {
	return f(ctx, run, inv)
}

// Stage selects one of the two command tables.
type Stage int

const (
	Stage1 Stage = iota + 1
	Stage2
)

func (s Stage) String() string {
	switch s {
	case Stage1:
		return "stage1"
	case Stage2:
		return "stage2"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Table maps command names to handlers, remembering registration order.
// Tables are built once and only read afterwards.
type Table struct {
	names    []string
	handlers map[string]Handler
}

func NewTable() *Table {
	return &Table{handlers: make(map[string]Handler)}
}

// Register adds h under name. It panics if name is empty or already taken.
func (t *Table) Register(name string, h Handler) {
	if name == "" {
		panic("macro: empty command name")
	}
	if h == nil {
		panic("macro: nil handler for " + name)
	}
	if _, dup := t.handlers[name]; dup {
		panic("macro: duplicate command " + name)
	}
	t.names = append(t.names, name)
	t.handlers[name] = h
}

// RegisterFunc is Register for a plain function.
func (t *Table) RegisterFunc(name string, f func(ctx context.Context, run *Run, inv Invocation) (string, error)) {
	t.Register(name, HandlerFunc(f))
}

// Lookup returns the handler for name.
func (t *Table) Lookup(name string) (Handler, bool) {
	if t == nil {
		return nil, false
	}
	h, ok := t.handlers[name]
	return h, ok
}

// Names returns the registered names in registration order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Registry holds the stage-1 and stage-2 tables.
type Registry struct {
	stage1 *Table
	stage2 *Table
}

func NewRegistry() *Registry {
	return &Registry{stage1: NewTable(), stage2: NewTable()}
}

// Table returns the table for stage.
func (r *Registry) Table(stage Stage) *Table {
	switch stage {
	case Stage1:
		return r.stage1
	case Stage2:
		return r.stage2
	}
	return nil
}

// Stages returns the stages in which name is registered.
func (r *Registry) Stages(name string) []Stage {
	var out []Stage
	for _, s := range []Stage{Stage1, Stage2} {
		if _, ok := r.Table(s).Lookup(name); ok {
			out = append(out, s)
		}
	}
	return out
}
