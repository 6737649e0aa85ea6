package macro

import (
	"errors"
	"fmt"
)

var (
	ErrIncludeCycle    = errors.New("include cycle")
	ErrIncludeDepth    = errors.New("include depth exceeded")
	ErrEscapesBase     = errors.New("path escapes base directory")
	ErrMissingArgument = errors.New("missing argument")
)

// FatalError aborts the whole run instead of degrading to literal text.
type FatalError struct {
	Command string
	Err     error
}

func (e *FatalError) Error() string {
	if e.Command == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err so that the dispatcher propagates it.
func Fatal(command string, err error) error {
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Command: command, Err: err}
}
