package util

import (
	"regexp"
	"strings"
)

const defaultFileName = "file"

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// SanitizeFileName collapses whitespace runs to "_" and strips every character outside
// [A-Za-z0-9._-]. Leading dots are dropped so the result is never hidden or "..".
func SanitizeFileName(name string) string {
	s := strings.TrimSpace(name)
	if i := strings.LastIndexAny(s, `/\`); i >= 0 {
		s = s[i+1:]
	}
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = disallowed.ReplaceAllString(s, "")
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return defaultFileName
	}
	return s
}
