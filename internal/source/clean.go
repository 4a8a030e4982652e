package source

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinLength drops filing items such as "Item 6. [Reserved]".
const DefaultMinLength = 200

var (
	dashDotRun = regexp.MustCompile(`-{3,}|\.{3,}`)
	plusRun    = regexp.MustCompile(`\+{2,}`)
)

// Clean normalises a text block before chunking: newlines become spaces,
// runs of three or more '-' or '.' and runs of two or more '+' are removed,
// and the result is trimmed. Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	// Removing one run can join its neighbours into a new run ("--...-").
	for {
		next := plusRun.ReplaceAllString(dashDotRun.ReplaceAllString(s, ""), "")
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

// CleanAll cleans every block and drops those whose cleaned length is
// below minLen characters. Empty results are always dropped.
func CleanAll(blocks []string, minLen int) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		c := Clean(b)
		if c == "" || utf8.RuneCountInString(c) < minLen {
			continue
		}
		out = append(out, c)
	}
	return out
}
