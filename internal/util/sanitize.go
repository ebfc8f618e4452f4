package util

import (
	"regexp"
	"unicode/utf8"
)

var controlRuns = regexp.MustCompile(`[\x00-\x1F\x7F]+`)

// SanitizeForLog flattens user content onto one line: every run of control
// characters (newlines and tabs included) becomes a single space.
func SanitizeForLog(s string) string {
	if s == "" {
		return s
	}
	return controlRuns.ReplaceAllString(s, " ")
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
