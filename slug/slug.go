// Package slug normalizes free-form text into URL- and filename-safe
// tokens. Post slugs and certificate file names share these rules so
// the two can never drift apart.
package slug

import "strings"

// Make lowercases s and collapses every run of non-alphanumeric
// characters into a single dash. Deterministic: equal input, equal
// output. Returns "" when s has no alphanumeric characters at all.
func Make(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if b.Len() > 0 && !dash {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
