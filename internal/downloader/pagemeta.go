package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPageBytes = 5 * 1024 * 1024

// PageMeta is what a watch page advertises about itself.
type PageMeta struct {
	Title string
	Image string
}

// PageScraper reads OpenGraph tags from the video page.
type PageScraper struct {
	client *http.Client
}

func NewPageScraper(client *http.Client) *PageScraper {
	return &PageScraper{client: client}
}

func (p *PageScraper) Fetch(ctx context.Context, url string) (PageMeta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return PageMeta{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := p.client.Do(req)
	if err != nil {
		return PageMeta{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PageMeta{}, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return PageMeta{}, fmt.Errorf("parsing page: %w", err)
	}
	return parsePageMeta(doc), nil
}

func parsePageMeta(doc *goquery.Document) PageMeta {
	meta := PageMeta{
		Title: metaContent(doc, `meta[property="og:title"]`, `meta[name="twitter:title"]`),
		Image: metaContent(doc, `meta[property="og:image"]`, `meta[name="twitter:image"]`),
	}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	return meta
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}
