package landmark

import (
	"html"
	"strings"
)

// depthClasses are the style classes applied to table of contents links,
// indexed by depth.
var depthClasses = [MaxDepth]string{
	"chapter",
	"schapter",
	"sschapter",
	"ssschapter",
	"sssschapter",
}

// RenderTOC serializes f as a nested ordered list.
func RenderTOC(f Forest) string {
	var sb strings.Builder
	sb.WriteString(`<ol class="tableofcontents">`)
	writeItems(&sb, f, 0)
	sb.WriteString(`</ol>`)
	return sb.String()
}

func writeItems(sb *strings.Builder, items []*Landmark, depth int) {
	class := depthClasses[min(depth, MaxDepth-1)]
	for _, l := range items {
		href := "#"
		if l.Href != "" {
			href = "#" + html.EscapeString(l.Href)
		}
		sb.WriteString(`<li><a href="`)
		sb.WriteString(href)
		sb.WriteString(`" class="_`)
		sb.WriteString(class)
		sb.WriteString(`">`)
		sb.WriteString(l.Name)
		sb.WriteString(`</a>`)
		if len(l.Children) > 0 {
			sb.WriteString(`<ol>`)
			writeItems(sb, l.Children, depth+1)
			sb.WriteString(`</ol>`)
		}
		sb.WriteString(`</li>`)
	}
}
