// Package sanitize normalizes free-text input before validation and storage.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxFieldLen caps every free-text field stored by the panel.
const maxFieldLen = 255

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// String trims surrounding whitespace, strips control characters and
// truncates to the storage limit.
func String(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	// Truncate on a rune boundary so a multi-byte character is never
	// split into invalid UTF-8.
	if utf8.RuneCountInString(s) > maxFieldLen {
		s = string([]rune(s)[:maxFieldLen])
	}
	return s
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return s != "" && len(s) <= maxFieldLen && emailRe.MatchString(s)
}
