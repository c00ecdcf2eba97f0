package utils

import (
	"strings"
	"unicode/utf8"
)

func EscapeMd(s string) string {
	repl := []string{"*", "\\*", "_", "\\_", "`", "\\`", "~", "\\~"}
	r := strings.NewReplacer(repl...)
	return r.Replace(s)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}

// FirstLine returns s up to the first newline.
func FirstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}
