package relay

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/blacktop/skyrelay/internal/logutil"
)

const (
	metadataTimeout = 10 * time.Second
	imageTimeout    = 15 * time.Second

	// metadataByteCap bounds how much of a linked page is read. Preview
	// metadata lives in the document head, so the first 10 KiB is enough
	// regardless of page size.
	metadataByteCap = 10 * 1024

	defaultTitle       = "No title"
	defaultDescription = "No description"
)

// Preview fetches link-preview metadata and thumbnail images over a shared
// HTTP client. All failures yield absence (a nil result), never an error:
// a post without a preview is still worth relaying.
type Preview struct {
	client *http.Client
	log    *log.Logger
}

// NewPreview wraps an HTTP client for preview fetching. The client should
// carry no client-level timeout; every call sets its own deadline.
func NewPreview(client *http.Client) *Preview {
	if client == nil {
		client = &http.Client{}
	}
	return &Preview{client: client, log: logutil.With()}
}

// WithLogger returns a copy of p that logs through l, sharing the HTTP
// client. Each relay binds the preview to its own sub-logger so fetch
// warnings identify the account pair they belong to.
func (p *Preview) WithLogger(l *log.Logger) *Preview {
	return &Preview{client: p.client, log: l}
}

// Metadata retrieves OpenGraph metadata for url from a bounded prefix of the
// page. Returns nil when the page cannot be fetched or parsed.
func (p *Preview) Metadata(ctx context.Context, url string) *LinkMetadata {
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.log.Warnf("metadata request for %s: %v", url, err)
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warnf("metadata fetch for %s: %v", url, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log.Warnf("metadata fetch for %s: status %d", url, resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, metadataByteCap))
	if err != nil {
		p.log.Warnf("metadata parse for %s: %v", url, err)
		return nil
	}

	meta := &LinkMetadata{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: firstMetaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`),
		Thumbnail:   firstMetaContent(doc, `meta[property="og:image"]`),
	}
	if meta.Title == "" {
		meta.Title = defaultTitle
	}
	if meta.Description == "" {
		meta.Description = defaultDescription
	}
	return meta
}

// Image downloads a thumbnail into memory. Returns nil when the download
// fails; thumbnail URLs are trusted to be reasonably sized, so no byte cap
// applies.
func (p *Preview) Image(ctx context.Context, url string) []byte {
	ctx, cancel := context.WithTimeout(ctx, imageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		p.log.Warnf("image request for %s: %v", url, err)
		return nil
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Warnf("image download for %s: %v", url, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log.Warnf("image download for %s: status %d", url, resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.log.Warnf("image download for %s: %v", url, err)
		return nil
	}
	return data
}

// firstMetaContent returns the content attribute of the first selector that
// matches with a non-empty value.
func firstMetaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if content = strings.TrimSpace(content); content != "" {
				return content
			}
		}
	}
	return ""
}
