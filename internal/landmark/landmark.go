// Package landmark builds a document outline from heading elements and
// renders it as a nested table of contents.
package landmark

import "fmt"

// Landmark is one heading and the headings nested beneath it.
type Landmark struct {
	Name     string      `json:"name"`           // Heading inner markup
	Href     string      `json:"href,omitempty"` // Heading id attribute, without '#'
	Children []*Landmark `json:"children,omitempty"`
}

// Forest is the ordered list of top-level landmarks of a document.
type Forest []*Landmark

// MaxDepth is the number of supported nesting depths (h2 through h6).
const MaxDepth = 5

// headingTags maps supported heading tags to their nesting depth.
var headingTags = map[string]int{
	"h2": 0,
	"h3": 1,
	"h4": 2,
	"h5": 3,
	"h6": 4,
}

// Depth returns the nesting depth of the tree below f, counting the top
// level as 1. An empty forest has depth 0.
func (f Forest) Depth() int {
	deepest := 0
	for _, l := range f {
		if d := Forest(l.Children).Depth() + 1; d > deepest {
			deepest = d
		}
	}
	return deepest
}

// Count returns the total number of landmarks in f.
func (f Forest) Count() int {
	n := 0
	for _, l := range f {
		n += 1 + Forest(l.Children).Count()
	}
	return n
}

// StructureError reports a heading that skips more than one nesting level
// relative to the heading before it.
type StructureError struct {
	PrevTag  string
	PrevName string
	Tag      string
	Name     string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("heading level skip: <%s> %q follows <%s> %q without an intermediate level",
		e.Tag, e.Name, e.PrevTag, e.PrevName)
}
