// Package utils provides shared helpers for logging and display text.
package utils

// Truncate returns s shortened to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged. Counting runes keeps
// multi-byte file names (e.g. Korean titles) intact.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
