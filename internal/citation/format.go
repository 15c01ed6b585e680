// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"strings"

	"github.com/pdiddy/sciqa/pkg/types"
)

// Format renders a citation as a single readable line, for example
// "Ada Lovelace and Charles Babbage (1843) Sketch of the Analytical Engine. Scientific Memoirs. Available at: https://…".
// Empty parts are omitted.
func Format(c types.Citation) string {
	var parts []string
	if a := joinAuthors(c.Authors); a != "" {
		parts = append(parts, a)
	}
	if c.Year != nil {
		parts = append(parts, fmt.Sprintf("(%d)", *c.Year))
	}
	if c.Title != "" {
		parts = append(parts, c.Title+".")
	}
	if c.Source != "" {
		parts = append(parts, c.Source+".")
	}
	if c.URL != nil && *c.URL != "" {
		parts = append(parts, "Available at: "+*c.URL)
	}
	return strings.Join(parts, " ")
}

// joinAuthors lists names as "A", "A and B", or "A, B, and C".
func joinAuthors(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
