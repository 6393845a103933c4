package tui

import (
	"strings"
	"unicode"
)

// Sanitize makes service-provided text safe to print on a terminal.
// Invalid UTF-8 is replaced and control characters other than newline
// and tab are removed. This prevents terminal corruption through ANSI
// sequences embedded in a response.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t'
}
