package certificate

import (
	"fmt"
	"time"

	"learnly/slug"
)

// sanitizeToken normalizes a free-form string into a filename-safe
// token, with a fallback for input that normalizes to nothing.
func sanitizeToken(s string) string {
	out := slug.Make(s)
	if out == "" {
		return "unnamed"
	}
	return out
}

// certFileName composes the stored PDF name from the owner, category,
// issue date and unique id, so files are identifiable and never collide.
func certFileName(userName, category string, issued time.Time, uniqueID string) string {
	return fmt.Sprintf("%s-%s-%s-%s.pdf",
		sanitizeToken(userName),
		sanitizeToken(category),
		issued.Format("2006-01-02"),
		uniqueID,
	)
}
