package common

import "strings"

// FoldName normalizes a place name for case-insensitive exact comparison.
func FoldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SameName reports whether two place names are equal ignoring case.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
