// Package scrape turns web pages into plain text suitable for
// statement extraction. It fetches pages politely, falls back to a
// headless browser for JS-walled sites and runs a cascade of
// extraction strategies from most to least structured.
package scrape

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// Scraper acquires plain text from URLs. Results are cached per URL
// and concurrent requests for the same URL are collapsed.
type Scraper struct {
	httpClient    *http.Client
	userAgent     string
	renderJS      bool
	renderTimeout time.Duration

	cache   map[string]Extraction
	cacheMu sync.RWMutex
	group   singleflight.Group
}

// ScraperParams configures a new Scraper. Zero values get sane defaults.
type ScraperParams struct {
	HTTPClient    *http.Client
	UserAgent     string
	RenderJS      bool
	RenderTimeout time.Duration
}

func NewScraper(params ScraperParams) *Scraper {
	if params.HTTPClient == nil {
		params.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if params.UserAgent == "" {
		params.UserAgent = defaultUserAgent
	}
	if params.RenderTimeout <= 0 {
		params.RenderTimeout = 45 * time.Second
	}
	return &Scraper{
		httpClient:    params.HTTPClient,
		userAgent:     params.UserAgent,
		renderJS:      params.RenderJS,
		renderTimeout: params.RenderTimeout,
		cache:         make(map[string]Extraction),
	}
}

// Acquire fetches the page at pageURL and extracts its readable text
// and metadata. It fails with an AcquisitionError when the page cannot
// be fetched or the terminal extraction strategy yields no text.
func (s *Scraper) Acquire(ctx context.Context, pageURL string) (Extraction, error) {
	s.cacheMu.RLock()
	if cached, ok := s.cache[pageURL]; ok {
		s.cacheMu.RUnlock()
		return cached, nil
	}
	s.cacheMu.RUnlock()

	result, err, _ := s.group.Do(pageURL, func() (any, error) {
		rawHTML, err := s.fetchHTML(ctx, pageURL)
		if err != nil {
			return Extraction{}, &AcquisitionError{URL: pageURL, Stage: "fetch", Err: err}
		}

		ex := extractCascade(rawHTML, pageURL)
		ex = sniffMetadata(rawHTML, ex)
		if ex.Content == "" {
			return Extraction{}, &AcquisitionError{URL: pageURL, Stage: "extract"}
		}

		s.cacheMu.Lock()
		s.cache[pageURL] = ex
		s.cacheMu.Unlock()
		return ex, nil
	})
	if err != nil {
		return Extraction{}, err
	}
	return result.(Extraction), nil
}
