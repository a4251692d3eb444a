package core

import (
	"strings"
	"unicode"
)

// NormalizeWhitespace collapses any run of whitespace (including newlines)
// into a single space and trims the result.
func NormalizeWhitespace(input string) string {
	var b strings.Builder

	b.Grow(len(input))

	lastWasSpace := false

	for _, ch := range input {
		if unicode.IsSpace(ch) {
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}

			continue
		}

		b.WriteRune(ch)
		lastWasSpace = false
	}

	return strings.TrimSpace(b.String())
}

// TruncateChars returns the first maxChars runes of input. A maxChars of 0
// always yields the empty string.
func TruncateChars(input string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}

	count := 0

	for idx := range input {
		if count == maxChars {
			return input[:idx]
		}

		count++
	}

	return input
}

// PreviewFromText truncates input to maxChars and appends an ellipsis if
// anything was cut off.
func PreviewFromText(input string, maxChars int) string {
	truncated := TruncateChars(input, maxChars)
	if len(truncated) < len(input) {
		return truncated + "..."
	}

	return truncated
}
