// Package strings holds text helpers shared by the CLI renderers.
package strings

import (
	"strings"
)

// DefaultCellMaxLen is the widest a free-text table cell gets, such as an
// API key name or a display name.
const DefaultCellMaxLen = 32

// minCellLen leaves room for one character plus "...".
const minCellLen = 4

// Cell flattens s onto one line and shortens it to at most maxLen runes,
// ending in "..." when cut. Whitespace runs collapse to a single space.
func Cell(s string, maxLen int) string {
	if maxLen < minCellLen {
		maxLen = minCellLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
