// Package strings holds small text helpers shared by the CLI output code.
package strings

import (
	"strings"
)

// DefaultCellMaxLen bounds free-form values such as element ids and version
// stamps in table output.
const DefaultCellMaxLen = 40

// MinTruncateLen leaves room for one rune plus the ellipsis.
const MinTruncateLen = 4

// Truncate flattens s onto one line and shortens it to at most maxLen runes,
// ending with "..." when anything was cut. maxLen is clamped to MinTruncateLen.
func Truncate(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// Middle shortens s by cutting its middle, keeping both ends visible. It is
// meant for identifiers whose suffix matters, like uuid version stamps.
func Middle(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	keep := maxLen - 3
	head := (keep + 1) / 2
	tail := keep - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}
