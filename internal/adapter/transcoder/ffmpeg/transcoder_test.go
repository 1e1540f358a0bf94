package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoflix/internal/domain"
)

var testQuality = domain.Quality{Label: "480p", Resolution: "854x480", Bitrate: "1400k"}

// fakeBin writes an executable shell script standing in for ffmpeg.
func fakeBin(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func TestTranscoder_ConvertQuality_Success(t *testing.T) {
	tr := NewTranscoder(fakeBin(t, "exit 0"))

	result, err := tr.ConvertQuality(context.Background(), "/in/movie.mp4", "/out", testQuality)

	require.NoError(t, err)
	assert.Equal(t, "-i", result.Command[1])
	assert.Equal(t, "/in/movie.mp4", result.Command[2])
}

func TestTranscoder_ConvertQuality_NonZeroExit(t *testing.T) {
	tr := NewTranscoder(fakeBin(t, `echo "Unknown encoder 'libx264'" >&2
exit 1`))

	result, err := tr.ConvertQuality(context.Background(), "/in/movie.mp4", "/out", testQuality)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "convert 480p")
	assert.Contains(t, result.Stderr, "Unknown encoder")
	// The exact command is preserved for diagnosis.
	assert.NotEmpty(t, result.Command)
}

func TestTranscoder_ConvertQuality_Timeout(t *testing.T) {
	tr := NewTranscoder(fakeBin(t, "sleep 10"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := tr.ConvertQuality(ctx, "/in/movie.mp4", "/out", testQuality)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTranscoder_ConvertQuality_PathValidation(t *testing.T) {
	tr := NewTranscoder("ffmpeg")

	tests := []struct {
		name   string
		source string
		outDir string
	}{
		{"empty source", "", "/out"},
		{"empty output dir", "/in/movie.mp4", ""},
		{"null byte in source", "/in/\x00movie.mp4", "/out"},
		{"null byte in output dir", "/in/movie.mp4", "/out\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.ConvertQuality(context.Background(), tt.source, tt.outDir, testQuality)
			assert.Error(t, err)
		})
	}
}
