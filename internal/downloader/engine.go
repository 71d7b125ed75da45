package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kkdai/youtube/v2"
)

// NativeClient talks to YouTube directly and uses ffmpeg for muxing and
// audio conversion. It does not support cookies.
type NativeClient struct {
	client youtube.Client
}

func NewNative(httpClient *http.Client) *NativeClient {
	return &NativeClient{client: youtube.Client{HTTPClient: httpClient}}
}

func (n *NativeClient) Probe(ctx context.Context, url string) (*Info, error) {
	video, err := n.client.GetVideoContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("video info error: %w", err)
	}

	info := &Info{Title: video.Title, Thumbnail: bestThumbnail(video.Thumbnails)}
	for _, f := range video.Formats {
		info.Streams = append(info.Streams, streamFromFormat(f))
	}
	return info, nil
}

func streamFromFormat(f youtube.Format) Stream {
	kind, ext, codecs := parseMimeType(f.MimeType)
	s := Stream{
		FormatID:   strconv.Itoa(f.ItagNo),
		Ext:        ext,
		Resolution: f.QualityLabel,
		Height:     f.Height,
		VCodec:     "none",
		ACodec:     "none",
	}

	switch kind {
	case "video":
		if len(codecs) > 0 {
			s.VCodec = codecs[0]
		}
		if len(codecs) > 1 {
			s.ACodec = codecs[1]
		}
	case "audio":
		if len(codecs) > 0 {
			s.ACodec = codecs[0]
		}
		rate := f.AverageBitrate
		if rate == 0 {
			rate = f.Bitrate
		}
		if rate > 0 {
			kbps := float64(rate) / 1000
			s.ABR = &kbps
		}
	}

	if f.ContentLength > 0 {
		size := f.ContentLength
		s.Filesize = &size
	}
	return s
}

// parseMimeType splits `video/mp4; codecs="avc1.42001E, mp4a.40.2"`.
func parseMimeType(mime string) (kind, ext string, codecs []string) {
	base, params, _ := strings.Cut(mime, ";")
	kind, ext, _ = strings.Cut(strings.TrimSpace(base), "/")

	if _, list, ok := strings.Cut(params, "codecs="); ok {
		for _, c := range strings.Split(strings.Trim(strings.TrimSpace(list), `"`), ",") {
			if c = strings.TrimSpace(c); c != "" {
				codecs = append(codecs, c)
			}
		}
	}
	return kind, ext, codecs
}

func bestThumbnail(thumbs youtube.Thumbnails) string {
	var best youtube.Thumbnail
	for _, t := range thumbs {
		if t.Width*t.Height >= best.Width*best.Height {
			best = t
		}
	}
	return best.URL
}

func (n *NativeClient) Fetch(ctx context.Context, req Request, onProgress ProgressFunc) error {
	if onProgress == nil {
		onProgress = func(Progress) {}
	}

	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	video, err := n.client.GetVideoContext(ctx, req.URL)
	if err != nil {
		return fmt.Errorf("video info error: %w", err)
	}

	safeTitle := sanitizeFilename(video.Title)
	if safeTitle == "" {
		safeTitle = video.ID
	}

	var formats []*youtube.Format
	if req.Selection.AudioOnly {
		audio := findBestAudioFormat(video.Formats)
		if audio == nil {
			return fmt.Errorf("format not found")
		}
		formats = append(formats, audio)
	} else {
		v := findBestVideoFormat(video.Formats, req.Selection.MaxHeight)
		if v == nil {
			return fmt.Errorf("format not found")
		}
		formats = append(formats, v)
		if v.AudioChannels == 0 {
			a := findBestAudioFormat(video.Formats)
			if a == nil {
				return fmt.Errorf("format not found")
			}
			formats = append(formats, a)
		}
	}

	var totalSize int64
	for _, f := range formats {
		totalSize += f.ContentLength
	}

	var currentBytes int64
	var mu sync.Mutex
	track := func(n int) {
		mu.Lock()
		defer mu.Unlock()
		currentBytes += int64(n)
		onProgress(Progress{Downloaded: currentBytes, Total: totalSize})
	}

	parts := make([]string, len(formats))
	errs := make([]error, len(formats))
	var wg sync.WaitGroup
	for i, f := range formats {
		_, ext, _ := parseMimeType(f.MimeType)
		parts[i] = filepath.Join(req.Dir, fmt.Sprintf("part%d_%s.%s", i, safeTitle, ext))

		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = n.downloadStream(ctx, video, f, parts[i], track)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	onProgress(Progress{Finished: true})

	var args []string
	var output string
	if req.Selection.AudioOnly {
		output = filepath.Join(req.Dir, safeTitle+"."+req.Selection.AudioCodec)
		args = []string{"-y", "-hide_banner", "-loglevel", "error",
			"-i", parts[0], "-vn", "-b:a", req.Selection.AudioQuality + "k", output}
	} else {
		output = filepath.Join(req.Dir, safeTitle+".mp4")
		args = []string{"-y", "-hide_banner", "-loglevel", "error"}
		for _, p := range parts {
			args = append(args, "-i", p)
		}
		args = append(args, "-c", "copy", output)
	}

	cmd := exec.CommandContext(ctx, ffmpeg, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg: %s", strings.TrimSpace(string(out)))
	}

	for _, p := range parts {
		os.Remove(p)
	}

	// 0 byte check
	if info, err := os.Stat(output); err != nil || info.Size() == 0 {
		return fmt.Errorf("generated file is empty")
	}
	return nil
}

// --- Helpers (Private) ---

func (n *NativeClient) downloadStream(ctx context.Context, v *youtube.Video, f *youtube.Format, path string, cb func(int)) error {
	stream, _, err := n.client.GetStreamContext(ctx, v, f)
	if err != nil {
		return err
	}
	defer stream.Close()

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	buf := make([]byte, 32*1024)
	for {
		read, err := stream.Read(buf)
		if read > 0 {
			if _, werr := file.Write(buf[:read]); werr != nil {
				return werr
			}
			cb(read)
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func parseQuality(q string) int {
	if q == "4k" {
		return 2160
	}
	digits := ""
	for _, c := range q {
		if c >= '0' && c <= '9' {
			digits += string(c)
		} else if digits != "" {
			break
		}
	}
	if digits == "" {
		return 0
	}
	val, _ := strconv.Atoi(digits)
	return val
}

func sanitizeFilename(name string) string {
	safe := strings.ReplaceAll(name, " ", "_")
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/:*?"<>|`, r) {
			return -1
		}
		return r
	}, safe)
}

func formatHeight(f *youtube.Format) int {
	if f.Height > 0 {
		return f.Height
	}
	return parseQuality(f.QualityLabel)
}

// findBestVideoFormat picks the tallest video stream not above maxHeight
// (0 = no cap); when every stream is above the cap it picks the shortest.
func findBestVideoFormat(formats youtube.FormatList, maxHeight int) *youtube.Format {
	var best, lowest *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "video") {
			continue
		}
		h := formatHeight(f)
		if lowest == nil || h < formatHeight(lowest) {
			lowest = f
		}
		if maxHeight > 0 && h > maxHeight {
			continue
		}
		if best == nil || h > formatHeight(best) ||
			(h == formatHeight(best) && strings.Contains(f.MimeType, "mp4") && !strings.Contains(best.MimeType, "mp4")) {
			best = f
		}
	}
	if best == nil {
		return lowest
	}
	return best
}

func findBestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if !strings.HasPrefix(f.MimeType, "audio") {
			continue
		}
		if best == nil {
			best = f
			continue
		}
		fMP4 := strings.Contains(f.MimeType, "mp4")
		bestMP4 := strings.Contains(best.MimeType, "mp4")
		if (fMP4 && !bestMP4) || (fMP4 == bestMP4 && f.Bitrate > best.Bitrate) {
			best = f
		}
	}
	return best
}

// Describe turns an extraction failure into a message fit for the browser.
func Describe(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "permission denied"):
		return "Storage permission denied. Please contact system administrator."
	case strings.Contains(msg, "no space left"):
		return "Disk space exhausted. Cannot complete download."
	case strings.Contains(msg, "ffmpeg"):
		return "Media processing error (FFmpeg failed). Please try again."
	case strings.Contains(msg, "cipher") || strings.Contains(msg, "signature"):
		return "YouTube restricted access to this video (Cipher/Signature error)."
	case strings.Contains(msg, "403"):
		return "Access forbidden. YouTube might be throttling the server IP."
	default:
		return "Download failed: " + msg
	}
}
