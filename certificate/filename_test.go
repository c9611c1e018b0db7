package certificate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ada Lovelace", "ada-lovelace"},
		{"  spaced   out  ", "spaced-out"},
		{"HTML & CSS", "html-css"},
		{"José Álvarez", "jos-lvarez"},
		{"日本語", "unnamed"},
		{"", "unnamed"},
		{"already-safe", "already-safe"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeToken(tt.in), "input %q", tt.in)
	}
}

func TestCertFileName(t *testing.T) {
	issued := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	name := certFileName("Ada Lovelace", "HTML", issued, "1234-abcd")
	assert.Equal(t, "ada-lovelace-html-2024-03-05-1234-abcd.pdf", name)
}
