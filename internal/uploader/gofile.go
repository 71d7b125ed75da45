// Package uploader publishes finished files to Gofile.
package uploader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	ErrMissingToken = errors.New("missing Gofile token")
	ErrNoLink       = errors.New("no link returned from Gofile")
)

const maxResponseBytes = 1 << 20

// Gofile uploads to each endpoint in order until one returns a download page.
type Gofile struct {
	client    *http.Client
	token     string
	endpoints []string
	timeout   time.Duration
}

func NewGofile(client *http.Client, token string, endpoints []string, timeout time.Duration) *Gofile {
	return &Gofile{
		client:    client,
		token:     token,
		endpoints: append([]string(nil), endpoints...),
		timeout:   timeout,
	}
}

type uploadResponse struct {
	Status string `json:"status"`
	Data   struct {
		DownloadPage string `json:"downloadPage"`
	} `json:"data"`
}

func (g *Gofile) Upload(ctx context.Context, path string) (string, error) {
	if g.token == "" {
		log.Println(">>> ❌ Missing GOFILE_TOKEN, upload skipped")
		return "", ErrMissingToken
	}

	var errs []error
	for _, endpoint := range g.endpoints {
		log.Printf(">>> 📤 Uploading %s to %s ...", filepath.Base(path), endpoint)
		link, err := g.uploadTo(ctx, endpoint, path)
		if err == nil {
			log.Printf(">>> ✅ Uploaded successfully: %s", link)
			return link, nil
		}
		log.Printf(">>> ⚠️ Upload failed at %s: %v", endpoint, err)
		errs = append(errs, fmt.Errorf("%s: %w", endpoint, err))

		if ctx.Err() != nil {
			break
		}
	}

	log.Println(">>> ❌ All Gofile endpoints failed")
	return "", fmt.Errorf("%w: %w", ErrNoLink, errors.Join(errs...))
}

func (g *Gofile) uploadTo(ctx context.Context, endpoint, path string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil {
		log.Printf(">>> 📦 Payload size: %s", humanize.Bytes(uint64(info.Size())))
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, g.token, file))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		pr.CloseWithError(err)
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if out.Status != "ok" {
		return "", fmt.Errorf("gofile returned status %q", out.Status)
	}
	if out.Data.DownloadPage == "" {
		return "", errors.New("response has no download page")
	}
	return out.Data.DownloadPage, nil
}

func writeForm(form *multipart.Writer, token string, file *os.File) error {
	if err := form.WriteField("token", token); err != nil {
		return err
	}
	part, err := form.CreateFormFile("file", filepath.Base(file.Name()))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return form.Close()
}
