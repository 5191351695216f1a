package grading

import "strings"

// textMatches compares a student text answer against the configured key:
// surrounding whitespace is trimmed on both sides and the comparison is
// case-insensitive. A blank key never matches anything.
func textMatches(key, answer string) bool {
	k := strings.TrimSpace(key)
	if k == "" {
		return false
	}
	return strings.EqualFold(k, strings.TrimSpace(answer))
}
