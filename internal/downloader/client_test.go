package downloader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSelection(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		quality string
		want    Selection
		spec    string
	}{
		{"mp3 128", "mp3", "128kbps", Selection{AudioOnly: true, AudioCodec: "mp3", AudioQuality: "192"}, "bestaudio/best"},
		{"mp3 320", "mp3", "320kbps", Selection{AudioOnly: true, AudioCodec: "mp3", AudioQuality: "320"}, "bestaudio/best"},
		{"mp3 empty quality", "mp3", "", Selection{AudioOnly: true, AudioCodec: "mp3", AudioQuality: "320"}, "bestaudio/best"},
		{"720p", "mp4", "720p", Selection{MaxHeight: 720}, "bestvideo[height<=720]+bestaudio/best"},
		{"480p", "mp4", "480p", Selection{MaxHeight: 480}, "bestvideo[height<=480]+bestaudio/best"},
		{"best", "mp4", "best", Selection{}, "bestvideo+bestaudio/best"},
		{"unknown label", "", "1080p", Selection{}, "bestvideo+bestaudio/best"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := NewSelection(tt.format, tt.quality)
			assert.Equal(t, tt.want, sel)
			assert.Equal(t, tt.spec, sel.FormatSpec())
		})
	}
}

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name string
		p    Progress
		want int
	}{
		{"unknown total", Progress{Downloaded: 500}, 0},
		{"floor", Progress{Downloaded: 999, Total: 1000}, 99},
		{"half", Progress{Downloaded: 50, Total: 100}, 50},
		{"complete", Progress{Downloaded: 100, Total: 100}, 100},
		{"overshoot", Progress{Downloaded: 150, Total: 100}, 100},
		{"nothing yet", Progress{Total: 100}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Percent())
		})
	}
}

func TestStreamTracks(t *testing.T) {
	assert.True(t, Stream{VCodec: "avc1"}.HasVideo())
	assert.False(t, Stream{VCodec: "none"}.HasVideo())
	assert.False(t, Stream{}.HasVideo())
	assert.True(t, Stream{ACodec: "opus"}.HasAudio())
	assert.False(t, Stream{ACodec: "none"}.HasAudio())
}
