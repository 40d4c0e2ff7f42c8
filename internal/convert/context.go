package convert

import "strings"

// TrailingContext returns the trailing maxChars characters of the
// fragment, or the fragment unchanged if it is shorter. The cut is
// rune-safe so multi-byte characters are never split.
func TrailingContext(fragment string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(fragment)
	if len(runes) <= maxChars {
		return fragment
	}
	return string(runes[len(runes)-maxChars:])
}

// NextContext derives the continuity context for the next page. Only a
// non-blank fragment replaces the carried context; skipped or empty
// pages leave the previous value intact.
func NextContext(previous, fragment string, maxChars int) string {
	if strings.TrimSpace(fragment) == "" {
		return previous
	}
	return TrailingContext(fragment, maxChars)
}
