// Package hls derives the on-disk layout for HLS artifacts and composes the
// master playlist referencing every rendition.
//
// Layout, relative to the media root:
//
//	videos/hls/<basename>/<quality>.m3u8      rendition playlist
//	videos/hls/<basename>/<quality>_NNN.ts    rendition segments
//	videos/hls/<basename>/playlist.m3u8       master playlist
//
// All rendition playlists live flat next to the master playlist and are
// referenced by bare filename.
package hls

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MasterPlaylistName is the filename of the top-level manifest.
const MasterPlaylistName = "playlist.m3u8"

// OutputDir maps a source file to its rendition directory: the source
// basename without extension, under <mediaRoot>/videos/hls. Deterministic,
// no filesystem access.
func OutputDir(mediaRoot, sourcePath string) string {
	base := filepath.Base(sourcePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(mediaRoot, "videos", "hls", base)
}

// EnsureOutputDir derives the rendition directory and creates it together
// with any missing parents. Calling it twice for the same source is not an
// error; a filesystem failure is fatal for the video's pipeline run.
func EnsureOutputDir(mediaRoot, sourcePath string) (string, error) {
	dir := OutputDir(mediaRoot, sourcePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return dir, nil
}
