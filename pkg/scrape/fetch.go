package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"

	"casethread/pkg/logger"
)

// maxBodySize caps the amount of HTML read from a single page.
const maxBodySize = 8 << 20

func (s *Scraper) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := s.httpClient.Do(req)
	if err != nil {
		if s.renderJS {
			logger.Warn(fmt.Sprintf("plain fetch of %s failed (%v), retrying with JS rendering", pageURL, err))
			return s.fetchRendered(ctx, pageURL)
		}
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		// Bot walls usually answer 403; a headless browser often gets through.
		if s.renderJS {
			logger.Warn(fmt.Sprintf("plain fetch of %s returned %d, retrying with JS rendering", pageURL, res.StatusCode))
			return s.fetchRendered(ctx, pageURL)
		}
		return "", fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), nil
}

// fetchRendered loads the page in a headless browser so that
// JS-populated articles still yield their full markup.
func (s *Scraper) fetchRendered(ctx context.Context, pageURL string) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.renderTimeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(500*time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("headless render failed: %w", err)
	}
	return html, nil
}
