package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Quality describes one HLS rendition: a label like "720p", an ffmpeg
// resolution string ("WxH") and a target bitrate like "2800k".
type Quality struct {
	Label      string
	Resolution string
	Bitrate    string
}

// Bandwidth converts the target bitrate into the bits-per-second value
// advertised in the master playlist ("5000k" -> 5000000).
func (q Quality) Bandwidth() (int64, error) {
	s := strings.TrimSuffix(q.Bitrate, "k")
	if s == q.Bitrate {
		return 0, fmt.Errorf("bitrate %q: missing k suffix", q.Bitrate)
	}
	kbps, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bitrate %q: %w", q.Bitrate, err)
	}
	return kbps * 1000, nil
}

// PlaylistName is the rendition playlist filename inside the output
// directory, e.g. "720p.m3u8".
func (q Quality) PlaylistName() string {
	return q.Label + ".m3u8"
}

// SegmentPattern is the ffmpeg segment filename pattern for this rendition,
// e.g. "720p_%03d.ts".
func (q Quality) SegmentPattern() string {
	return q.Label + "_%03d.ts"
}

// Ladder is an ordered, read-only set of renditions. Order is significant:
// the master playlist lists entries in ladder order.
type Ladder []Quality

// DefaultLadder returns the process-wide rendition set. Callers receive a
// fresh slice so the ladder stays immutable after startup.
func DefaultLadder() Ladder {
	return Ladder{
		{Label: "1080p", Resolution: "1920x1080", Bitrate: "5000k"},
		{Label: "720p", Resolution: "1280x720", Bitrate: "2800k"},
		{Label: "480p", Resolution: "854x480", Bitrate: "1400k"},
	}
}

func (l Ladder) ByLabel(label string) (Quality, bool) {
	for _, q := range l {
		if q.Label == label {
			return q, true
		}
	}
	return Quality{}, false
}
