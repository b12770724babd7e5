package util

import "strings"

// SanitizeText prepares extracted assignment text for storage: it drops NUL
// and other control characters Postgres text columns reject, the UTF-8 BOM
// and replacement runes left by broken PDF encodings, normalizes line endings
// and collapses runs of blank lines.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	r := make([]rune, 0, len(s))
	newlines := 0
	for _, ch := range s {
		switch {
		case ch == '\n':
			newlines++
			if newlines > 2 {
				continue
			}
		case ch == '\r':
			ch = '\n'
			newlines++
			if newlines > 2 {
				continue
			}
		case ch == '\t':
		case ch < 0x20, ch == 0x7f, ch == '\uFEFF', ch == '\uFFFD':
			continue
		case ch == ' ':
		default:
			newlines = 0
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}
