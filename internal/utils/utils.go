package utils

import (
	"strings"
	"unicode"
)

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

// NormalizeText lowercases s and collapses every whitespace run into a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), " ")
}

// SingleLine flattens multi-line model output for prompts and logs.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
