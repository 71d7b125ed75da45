package downloader

import (
	"context"
	"fmt"
	"strings"
)

// Client is the extraction backend: it resolves a page URL into stream
// descriptors and, on request, fetches the selected streams into a directory.
type Client interface {
	Probe(ctx context.Context, url string) (*Info, error)
	Fetch(ctx context.Context, req Request, onProgress ProgressFunc) error
}

// Info is the metadata of a single video.
type Info struct {
	Title     string
	Thumbnail string
	Streams   []Stream
}

// Stream describes one downloadable format. Codec fields hold "none" or ""
// when the stream lacks that track.
type Stream struct {
	FormatID   string
	Ext        string
	Resolution string
	Height     int
	VCodec     string
	ACodec     string
	ABR        *float64
	Filesize   *int64
}

func (s Stream) HasVideo() bool { return hasCodec(s.VCodec) }
func (s Stream) HasAudio() bool { return hasCodec(s.ACodec) }

func hasCodec(c string) bool {
	return c != "" && c != "none"
}

// Request asks a Client to fetch one selection into Dir.
type Request struct {
	URL       string
	Dir       string
	Selection Selection
}

// Progress is reported while a fetch runs. Finished is set once the payload
// is on disk; conversion may still follow.
type Progress struct {
	Downloaded int64
	Total      int64
	Finished   bool
}

type ProgressFunc func(Progress)

// Percent is floor(downloaded/total*100), or 0 when the total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 || p.Downloaded <= 0 {
		return 0
	}
	pct := p.Downloaded * 100 / p.Total
	if pct > 100 {
		pct = 100
	}
	return int(pct)
}

const (
	FormatMP3 = "mp3"

	audioPresetLow  = "192"
	audioPresetHigh = "320"
)

// Selection is what to fetch and how to convert it.
type Selection struct {
	AudioOnly    bool
	AudioCodec   string
	AudioQuality string
	// MaxHeight caps the video stream; 0 means best available.
	MaxHeight int
}

// NewSelection maps the browser's format/quality pair onto a Selection.
func NewSelection(format, quality string) Selection {
	if format == FormatMP3 {
		preset := audioPresetHigh
		if strings.Contains(quality, "128") {
			preset = audioPresetLow
		}
		return Selection{AudioOnly: true, AudioCodec: FormatMP3, AudioQuality: preset}
	}

	switch quality {
	case "720p":
		return Selection{MaxHeight: 720}
	case "480p":
		return Selection{MaxHeight: 480}
	default:
		return Selection{}
	}
}

// FormatSpec renders the selection as a yt-dlp format selector.
func (s Selection) FormatSpec() string {
	if s.AudioOnly {
		return "bestaudio/best"
	}
	if s.MaxHeight > 0 {
		return fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best", s.MaxHeight)
	}
	return "bestvideo+bestaudio/best"
}
