// Package strings holds small helpers for configured string lists such as
// scopes and restriction patterns.
package strings

import (
	"strings"
)

// Normalize trims each value, drops blanks and repeats, and keeps the first
// occurrence order. It returns nil when nothing survives, so an all-blank
// restriction list reads as "no restriction" rather than "match nothing".
func Normalize(values []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SplitList splits a comma separated setting and normalizes the parts.
func SplitList(s string) []string {
	return Normalize(strings.Split(s, ","))
}
