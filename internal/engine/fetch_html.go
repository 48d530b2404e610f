package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// maxPageBytes caps a watch page read; YouTube pages run 1-3 MB.
const maxPageBytes = 6 * 1024 * 1024

// FetchPage loads an HTML page the way a browser tab would.
// Uses BrowserClient when configured, otherwise HTTPClient with retry.
func FetchPage(ctx context.Context, rawURL string) (body []byte, err error) {
	metrics.FetchRequests.Add(1)
	defer func() {
		if err != nil {
			metrics.FetchErrors.Add(1)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, cfg.FetchTimeout)
	defer cancel()

	if cfg.BrowserClient != nil {
		headers := ChromeHeaders()
		headers["accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
		data, status, err := cfg.BrowserClient.Do(http.MethodGet, rawURL, headers, nil)
		if err != nil {
			return nil, fmt.Errorf("browser fetch: %w", err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("status %d", status)
		}
		return data, nil
	}

	resp, err := RetryHTTP(ctx, DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", RandomUserAgent())
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}

// ParseHTML builds a goquery document from a page body.
func ParseHTML(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("goquery parse: %w", err)
	}
	return doc, nil
}

// SelectionText returns readable text for an element.
// Markup-heavy blocks (descriptions with links and line breaks) go through
// html-to-markdown so paragraphs survive; plain nodes use their text content.
func SelectionText(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	if s.Children().Length() > 0 {
		if inner, err := s.Html(); err == nil {
			if md, err := htmltomarkdown.ConvertString(inner); err == nil {
				return CollapseSpace(md)
			}
		}
	}
	return CollapseSpace(strings.TrimSpace(s.Text()))
}
