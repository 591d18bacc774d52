// Package checker compares program output with expected output, ignoring whitespace layout.
package checker

import "strings"

// Normalize canonicalizes output for comparison: lines are trimmed, runs of
// whitespace inside a line become one space, empty lines are dropped, and the
// remaining lines are joined with "\n". CRLF and LF input normalize the same.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		kept = append(kept, strings.Join(fields, " "))
	}
	return strings.Join(kept, "\n")
}

// Equal reports whether actual and expected match after normalization.
func Equal(actual, expected string) bool {
	return Normalize(actual) == Normalize(expected)
}
