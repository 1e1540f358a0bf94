package hls

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"videoflix/internal/domain"
)

// WriteMasterPlaylist writes playlist.m3u8 into outputDir, listing one
// stream entry per ladder rendition in ladder order. It returns the playlist
// path relative to mediaRoot, which is what gets stored on the video record
// so references stay portable across deployments.
//
// The caller is responsible for only invoking this after every rendition has
// been produced.
func WriteMasterPlaylist(mediaRoot, outputDir string, ladder domain.Ladder) (string, error) {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")

	for _, q := range ladder {
		bandwidth, err := q.Bandwidth()
		if err != nil {
			return "", fmt.Errorf("quality %s: %w", q.Label, err)
		}
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s\n", bandwidth, q.Resolution)
		b.WriteString(q.PlaylistName() + "\n")
	}

	path := filepath.Join(outputDir, MasterPlaylistName)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write master playlist: %w", err)
	}

	rel, err := filepath.Rel(mediaRoot, path)
	if err != nil {
		return "", fmt.Errorf("relativize playlist path: %w", err)
	}
	return rel, nil
}
