package logger

import "fmt"

// Sanitize escapes control characters in user-supplied strings (titles,
// upload filenames, ffmpeg output) before they reach the log. Newlines could
// otherwise forge log entries and ANSI escapes could manipulate a terminal.
func Sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			out = append(out, '\\', 'n')
		case r == '\r':
			out = append(out, '\\', 'r')
		case r == '\t':
			out = append(out, '\\', 't')
		case r < 32 || r == 127:
			out = append(out, []rune(fmt.Sprintf("\\x%02x", r))...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
