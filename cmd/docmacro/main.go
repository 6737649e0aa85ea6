// docmacro expands {{name:argument}} commands in documents.
//
// Usage:
//
//	docmacro render [file] [-o output]
//	docmacro outline [file]
//	docmacro serve
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
