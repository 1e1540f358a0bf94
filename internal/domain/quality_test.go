package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuality_Bandwidth(t *testing.T) {
	tests := []struct {
		bitrate string
		want    int64
		wantErr bool
	}{
		{"5000k", 5000000, false},
		{"2800k", 2800000, false},
		{"1400k", 1400000, false},
		{"64k", 64000, false},
		{"2800", 0, true},  // missing suffix
		{"fastk", 0, true}, // not a number
	}

	for _, tt := range tests {
		t.Run(tt.bitrate, func(t *testing.T) {
			got, err := Quality{Bitrate: tt.bitrate}.Bandwidth()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuality_Filenames(t *testing.T) {
	q := Quality{Label: "720p"}
	assert.Equal(t, "720p.m3u8", q.PlaylistName())
	assert.Equal(t, "720p_%03d.ts", q.SegmentPattern())
}

func TestDefaultLadder(t *testing.T) {
	ladder := DefaultLadder()

	require.Len(t, ladder, 3)
	// Ladder order drives master playlist order and must stay stable.
	assert.Equal(t, []string{"1080p", "720p", "480p"},
		[]string{ladder[0].Label, ladder[1].Label, ladder[2].Label})
	assert.Equal(t, "1920x1080", ladder[0].Resolution)
	assert.Equal(t, "5000k", ladder[0].Bitrate)
}

func TestDefaultLadder_ReturnsFreshSlice(t *testing.T) {
	first := DefaultLadder()
	first[0].Bitrate = "1k"

	assert.Equal(t, "5000k", DefaultLadder()[0].Bitrate)
}

func TestLadder_ByLabel(t *testing.T) {
	ladder := DefaultLadder()

	q, ok := ladder.ByLabel("480p")
	require.True(t, ok)
	assert.Equal(t, "854x480", q.Resolution)

	_, ok = ladder.ByLabel("240p")
	assert.False(t, ok)
}
