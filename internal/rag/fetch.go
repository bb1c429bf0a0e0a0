package rag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	fetchTimeout = 20 * time.Second
	maxPageSize  = 4 << 20 // 4 MB
)

// Page is the extracted text of one source URL.
type Page struct {
	URL  string
	Text string
}

// Fetcher downloads source pages and extracts their article text.
type Fetcher struct {
	http   *http.Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher with a bounded per-request timeout.
func NewFetcher(logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{http: &http.Client{Timeout: fetchTimeout}, logger: logger}
}

// FetchAll fetches every URL in order. Any failure aborts the fetch.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) ([]Page, error) {
	pages := make([]Page, 0, len(urls))
	for _, u := range urls {
		p, err := f.Fetch(ctx, u)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// Fetch downloads one page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("rag: creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "finassist/1.0")
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := f.http.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("rag: fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Page{}, fmt.Errorf("rag: fetching %s: unexpected status %d", url, resp.StatusCode)
	}

	text, err := ExtractText(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return Page{}, fmt.Errorf("rag: %s: %w", url, err)
	}
	f.logger.Debug("page fetched",
		zap.String("url", url),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return Page{URL: url, Text: text}, nil
}
