package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "movie.mp4", "movie.mp4"},
		{"newline", "movie\nINFO: forged", "movie\\nINFO: forged"},
		{"carriage return", "a\rb", "a\\rb"},
		{"tab", "a\tb", "a\\tb"},
		{"ansi escape", "a\x1b[31mb", "a\\x1b[31mb"},
		{"null byte", "a\x00b", "a\\x00b"},
		{"unicode preserved", "fïlm 映画.mp4", "fïlm 映画.mp4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}
