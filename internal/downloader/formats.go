package downloader

import (
	"context"
	"fmt"
	"log"

	"ytdl-server/internal/models"
)

// FetchError is returned when metadata for a URL could not be retrieved.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch formats: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MetaFetcher fills in title and thumbnail when the extractor leaves them out.
type MetaFetcher interface {
	Fetch(ctx context.Context, url string) (PageMeta, error)
}

// Lister builds the format catalog shown to the browser.
type Lister struct {
	client Client
	meta   MetaFetcher
}

// NewLister returns a Lister; meta may be nil.
func NewLister(client Client, meta MetaFetcher) *Lister {
	return &Lister{client: client, meta: meta}
}

func (l *Lister) List(ctx context.Context, url string) (*models.FormatCatalog, error) {
	info, err := l.client.Probe(ctx, url)
	if err != nil {
		return nil, &FetchError{Err: err}
	}

	catalog := Catalog(info)
	if l.meta != nil && (catalog.Title == "" || catalog.Thumbnail == "") {
		page, err := l.meta.Fetch(ctx, url)
		if err != nil {
			log.Printf("⚠️ Page metadata fallback failed for %s: %v", url, err)
		} else {
			if catalog.Title == "" {
				catalog.Title = page.Title
			}
			if catalog.Thumbnail == "" {
				catalog.Thumbnail = page.Image
			}
		}
	}
	return catalog, nil
}

// Catalog partitions streams into video-capable and audio-only lists,
// keeping extractor order. Streams with neither track are dropped.
func Catalog(info *Info) *models.FormatCatalog {
	catalog := &models.FormatCatalog{
		Title:        info.Title,
		Thumbnail:    info.Thumbnail,
		VideoFormats: []models.VideoFormat{},
		AudioFormats: []models.AudioFormat{},
	}

	for _, s := range info.Streams {
		switch {
		case s.HasVideo():
			catalog.VideoFormats = append(catalog.VideoFormats, models.VideoFormat{
				FormatID:   s.FormatID,
				Ext:        s.Ext,
				Resolution: resolutionLabel(s),
				Filesize:   s.Filesize,
			})
		case s.HasAudio():
			f := models.AudioFormat{
				FormatID: s.FormatID,
				Ext:      s.Ext,
				Filesize: s.Filesize,
			}
			if s.ABR != nil {
				f.ABR = models.KnownBitrate(*s.ABR)
			}
			catalog.AudioFormats = append(catalog.AudioFormats, f)
		}
	}
	return catalog
}

func resolutionLabel(s Stream) string {
	if s.Resolution != "" {
		return s.Resolution
	}
	if s.Height > 0 {
		return fmt.Sprintf("%dp", s.Height)
	}
	return "?p"
}
