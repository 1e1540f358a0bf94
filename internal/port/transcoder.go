package port

import (
	"context"

	"videoflix/internal/domain"
)

// RenditionResult carries enough context to diagnose a failed conversion
// without re-running it: the exact command and the captured stderr.
type RenditionResult struct {
	Command []string
	Stderr  string
}

type Transcoder interface {
	// ConvertQuality encodes one rendition of the source into outputDir.
	// The context bounds the external process; a non-zero exit or timeout
	// is returned as an error alongside the captured output.
	ConvertQuality(ctx context.Context, sourcePath, outputDir string, quality domain.Quality) (RenditionResult, error)
}
