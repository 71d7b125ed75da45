package downloader

import (
	"encoding/json"
	"testing"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYtdlpInfoConversion(t *testing.T) {
	payload := `{
		"title": "clip",
		"thumbnail": "https://i.ytimg.com/vi/abc123/maxresdefault.jpg",
		"formats": [
			{"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none", "resolution": "48x27"},
			{"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.478, "filesize": 3456789, "resolution": "audio only"},
			{"format_id": "18", "ext": "mp4", "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "height": 360, "resolution": "640x360", "filesize": null}
		]
	}`

	var raw ytdlpInfo
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))
	info := raw.toInfo()

	assert.Equal(t, "clip", info.Title)
	require.Len(t, info.Streams, 3)

	audio := info.Streams[1]
	assert.True(t, audio.HasAudio())
	assert.False(t, audio.HasVideo())
	require.NotNil(t, audio.ABR)
	assert.InDelta(t, 129.478, *audio.ABR, 0.0001)
	require.NotNil(t, audio.Filesize)
	assert.EqualValues(t, 3456789, *audio.Filesize)

	muxed := info.Streams[2]
	assert.Equal(t, 360, muxed.Height)
	assert.Equal(t, "640x360", muxed.Resolution)
	assert.Nil(t, muxed.Filesize)

	catalog := Catalog(info)
	assert.Len(t, catalog.VideoFormats, 1)
	assert.Len(t, catalog.AudioFormats, 1)
}

func TestProgressFromUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update ytdlp.ProgressUpdate
		want   Progress
		ok     bool
	}{
		{
			name:   "downloading",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, DownloadedBytes: 512, TotalBytes: 2048},
			want:   Progress{Downloaded: 512, Total: 2048},
			ok:     true,
		},
		{
			name:   "downloading unknown total",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, DownloadedBytes: 100},
			want:   Progress{Downloaded: 100},
			ok:     true,
		},
		{
			name:   "finished",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusFinished, DownloadedBytes: 2048, TotalBytes: 2048},
			want:   Progress{Finished: true},
			ok:     true,
		},
		{
			name:   "post processing",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusPostProcessing},
			want:   Progress{Finished: true},
			ok:     true,
		},
		{
			name:   "starting",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusStarting},
			ok:     false,
		},
		{
			name:   "error",
			update: ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusError},
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := progressFromUpdate(tt.update)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgressFromUpdatePercent(t *testing.T) {
	p, ok := progressFromUpdate(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusDownloading, DownloadedBytes: 999, TotalBytes: 1000})
	require.True(t, ok)
	assert.Equal(t, 99, p.Percent())
}
