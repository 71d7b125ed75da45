package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
)

const progressFrequency = 500 * time.Millisecond

// YtdlpClient drives the yt-dlp executable.
type YtdlpClient struct {
	executable string
	cookieFile string
}

// NewYtdlp returns a yt-dlp backed Client. An empty executable means the
// one found on PATH.
func NewYtdlp(executable, cookieFile string) *YtdlpClient {
	return &YtdlpClient{executable: executable, cookieFile: cookieFile}
}

type ytdlpInfo struct {
	Title     string        `json:"title"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID   string   `json:"format_id"`
	Ext        string   `json:"ext"`
	Resolution string   `json:"resolution"`
	Height     *float64 `json:"height"`
	VCodec     string   `json:"vcodec"`
	ACodec     string   `json:"acodec"`
	ABR        *float64 `json:"abr"`
	Filesize   *float64 `json:"filesize"`
}

func (c *YtdlpClient) command() *ytdlp.Command {
	cmd := ytdlp.New().
		NoWarnings().
		NoPlaylist()
	if c.executable != "" {
		cmd.SetExecutable(c.executable)
	}
	if c.cookieFile != "" {
		cmd.Cookies(c.cookieFile)
	}
	return cmd
}

func (c *YtdlpClient) Probe(ctx context.Context, url string) (*Info, error) {
	res, err := c.command().
		SkipDownload().
		DumpSingleJSON().
		Run(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	var raw ytdlpInfo
	if err := json.Unmarshal([]byte(res.Stdout), &raw); err != nil {
		return nil, fmt.Errorf("parsing yt-dlp output: %w", err)
	}
	return raw.toInfo(), nil
}

func (raw ytdlpInfo) toInfo() *Info {
	info := &Info{Title: raw.Title, Thumbnail: raw.Thumbnail}
	for _, f := range raw.Formats {
		s := Stream{
			FormatID:   f.FormatID,
			Ext:        f.Ext,
			Resolution: f.Resolution,
			VCodec:     f.VCodec,
			ACodec:     f.ACodec,
			ABR:        f.ABR,
		}
		if f.Height != nil {
			s.Height = int(*f.Height)
		}
		if f.Filesize != nil {
			size := int64(*f.Filesize)
			s.Filesize = &size
		}
		info.Streams = append(info.Streams, s)
	}
	return info
}

func (c *YtdlpClient) Fetch(ctx context.Context, req Request, onProgress ProgressFunc) error {
	cmd := c.command().
		Output(filepath.Join(req.Dir, "%(title)s.%(ext)s")).
		Format(req.Selection.FormatSpec())

	if req.Selection.AudioOnly {
		cmd.ExtractAudio().
			AudioFormat(req.Selection.AudioCodec).
			AudioQuality(req.Selection.AudioQuality)
	}

	cmd.ProgressFunc(progressFrequency, func(update ytdlp.ProgressUpdate) {
		if onProgress == nil {
			return
		}
		if p, ok := progressFromUpdate(update); ok {
			onProgress(p)
		}
	})

	if _, err := cmd.Run(ctx, req.URL); err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}
	return nil
}

// progressFromUpdate maps a yt-dlp update; ok is false for updates that
// carry nothing worth reporting.
func progressFromUpdate(update ytdlp.ProgressUpdate) (Progress, bool) {
	switch update.Status {
	case ytdlp.ProgressStatusDownloading:
		return Progress{
			Downloaded: int64(update.DownloadedBytes),
			Total:      int64(update.TotalBytes),
		}, true
	case ytdlp.ProgressStatusFinished, ytdlp.ProgressStatusPostProcessing:
		return Progress{Finished: true}, true
	default:
		return Progress{}, false
	}
}
