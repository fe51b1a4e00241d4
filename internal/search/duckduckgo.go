package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const maxRelatedTopics = 3

type instantAnswerResponse struct {
	Abstract       string `json:"Abstract"`
	AbstractURL    string `json:"AbstractURL"`
	AbstractSource string `json:"AbstractSource"`
	Heading        string `json:"Heading"`
	RelatedTopics  []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// instantAnswers queries the DuckDuckGo instant-answer API. Failures are
// logged and yield no results rather than an error; the caller's fallback
// summary covers the empty case.
func (s *Service) instantAnswers(ctx context.Context, query string) []PageResult {
	u := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&skip_disambig=1", s.ddgBaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		s.logger.Warn("instant answer request failed", "error", err)
		return nil
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("instant answer request failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("instant answer returned non-200", "status", resp.StatusCode)
		return nil
	}

	var parsed instantAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		s.logger.Warn("decoding instant answer failed", "error", err)
		return nil
	}

	now := time.Now().UTC()
	var results []PageResult

	if parsed.Abstract != "" {
		title := parsed.Heading
		if title == "" {
			title = "Search Result"
		}
		src := parsed.AbstractSource
		if src == "" {
			src = "DuckDuckGo"
		}
		results = append(results, PageResult{
			Title:     title,
			URL:       parsed.AbstractURL,
			Content:   parsed.Abstract,
			Source:    src,
			Timestamp: now,
		})
	}

	for i, topic := range parsed.RelatedTopics {
		if i >= maxRelatedTopics {
			break
		}
		if topic.Text == "" || topic.FirstURL == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, PageResult{
			Title:     title,
			URL:       topic.FirstURL,
			Content:   topic.Text,
			Source:    "DuckDuckGo",
			Timestamp: now,
		})
	}

	return results
}
