package textutil

import "strings"

// SanitizeFileName strips characters that are invalid or risky in library
// file and directory names. Unsafe punctuation and control characters are
// removed outright rather than substituted, whitespace runs collapse to a
// single space, and trailing dots and spaces are trimmed.
func SanitizeFileName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			continue
		case strings.ContainsRune(`<>:"/\|?*`, r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), " ")
	return strings.TrimRight(cleaned, ". ")
}
