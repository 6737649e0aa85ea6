// Package macro finds {{name:argument}} invocations in text and replaces each
// with the output of the handler registered for its name.
package macro

import (
	"regexp"
	"strings"
)

// Pattern matches one command invocation. The name runs up to the first
// ':' on the same line and may not contain braces; the argument may span
// lines and runs to the first "}}".
var Pattern = regexp.MustCompile(`(?s)\{\{([^:{}\r\n]+):(.*?)\}\}`)

// Invocation is one matched command span.
type Invocation struct {
	Name     string // Trimmed command name
	Argument string // Trimmed argument, may be empty
	Raw      string // The full matched text, braces included
	Offset   int    // Byte offset of Raw in the scanned buffer
}

// Find returns every non-overlapping invocation in text, leftmost first.
func Find(text string) []Invocation {
	locs := Pattern.FindAllStringSubmatchIndex(text, -1)
	out := make([]Invocation, 0, len(locs))
	for _, loc := range locs {
		out = append(out, invocationAt(text, loc))
	}
	return out
}

func invocationAt(text string, loc []int) Invocation {
	return Invocation{
		Name:     strings.TrimSpace(text[loc[2]:loc[3]]),
		Argument: strings.TrimSpace(text[loc[4]:loc[5]]),
		Raw:      text[loc[0]:loc[1]],
		Offset:   loc[0],
	}
}

// Args splits a comma-separated argument into trimmed, non-empty parts.
func (inv Invocation) Args() []string {
	var out []string
	for _, p := range strings.Split(inv.Argument, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
