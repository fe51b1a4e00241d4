package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

const (
	maxFetchBody      = 5 << 20 // 5MB
	maxContentExtract = 2000
	fetchUserAgent    = "Mozilla/5.0 (compatible; chatrelay/1.0)"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// fetchPages fetches up to maxFetchURLs pages concurrently and extracts a
// title plus a bounded text excerpt from each. Failed fetches are logged and
// skipped; result order follows the input URL order.
func (s *Service) fetchPages(ctx context.Context, urls []string) []PageResult {
	if len(urls) > maxFetchURLs {
		urls = urls[:maxFetchURLs]
	}

	results := make([]*PageResult, len(urls))
	g, gCtx := errgroup.WithContext(ctx)

	for i, u := range urls {
		g.Go(func() error {
			page, err := s.fetchPage(gCtx, u)
			if err != nil {
				s.logger.Warn("page fetch failed", "url", u, "error", err)
				return nil
			}
			results[i] = page
			return nil
		})
	}
	_ = g.Wait()

	var out []PageResult
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

func (s *Service) fetchPage(ctx context.Context, url string) (*PageResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = url
	}

	doc.Find("script, style, noscript").Remove()
	text := whitespacePattern.ReplaceAllString(strings.TrimSpace(doc.Find("body").Text()), " ")
	if len(text) > maxContentExtract {
		text = text[:maxContentExtract]
	}

	return &PageResult{
		Title:     title,
		URL:       url,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}, nil
}
