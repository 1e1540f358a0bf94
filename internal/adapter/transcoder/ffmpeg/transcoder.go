package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"videoflix/internal/domain"
	"videoflix/internal/port"
)

var (
	ErrEmptyPath   = errors.New("empty path")
	ErrInvalidPath = errors.New("path contains null byte")
)

// Transcoder runs ffmpeg as an external process. Safe for concurrent use:
// it holds no mutable state, and sibling renditions of one video write to
// distinct quality-namespaced files.
type Transcoder struct {
	bin string
}

func NewTranscoder(bin string) *Transcoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &Transcoder{bin: bin}
}

// ConvertQuality encodes one rendition. Stderr is captured in full; on a
// non-zero exit or context timeout the captured output and the exact command
// are returned so the failure can be diagnosed without re-running the job.
func (t *Transcoder) ConvertQuality(ctx context.Context, sourcePath, outputDir string, q domain.Quality) (port.RenditionResult, error) {
	if err := validatePath(sourcePath); err != nil {
		return port.RenditionResult{}, fmt.Errorf("invalid input path: %w", err)
	}
	if err := validatePath(outputDir); err != nil {
		return port.RenditionResult{}, fmt.Errorf("invalid output dir: %w", err)
	}

	args := BuildArgs(t.bin, sourcePath, outputDir, q)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := port.RenditionResult{
		Command: args,
		Stderr:  stderr.String(),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("convert %s: %w", q.Label, ctxErr)
		}
		return result, fmt.Errorf("convert %s: %w", q.Label, err)
	}
	return result, nil
}

func validatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return ErrInvalidPath
	}
	return nil
}

var _ port.Transcoder = (*Transcoder)(nil)
