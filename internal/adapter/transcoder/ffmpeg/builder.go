package ffmpeg

import (
	"path/filepath"

	"videoflix/internal/domain"
)

// BuildArgs constructs the full ffmpeg invocation for one quality rendition.
// Pure construction, no side effects: for fixed inputs the returned slice is
// identical across calls. args[0] is the binary itself.
//
// Policy is fixed: H.264 video at the rendition's resolution and target
// bitrate, AAC audio, HLS transport-stream segments of 5 seconds with a vod
// playlist. Segment and playlist filenames are namespaced by quality label
// so concurrent renditions of the same video never collide.
func BuildArgs(bin, sourcePath, outputDir string, q domain.Quality) []string {
	return []string{
		bin,
		"-i", sourcePath,
		"-preset", "fast",
		"-g", "48",
		"-sc_threshold", "0",
		"-map", "0:v",
		"-map", "0:a?",
		"-s:v", q.Resolution,
		"-c:v", "libx264",
		"-b:v", q.Bitrate,
		"-c:a", "aac",
		"-strict", "-2",
		"-f", "hls",
		"-hls_time", "5",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outputDir, q.SegmentPattern()),
		"-y",
		filepath.Join(outputDir, q.PlaylistName()),
	}
}
