// Package search implements the web search/browse operation: fetch pages or
// query DuckDuckGo's instant-answer API, then summarize the results through
// the completion endpoint with numbered citations.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatrelay/internal/openai"
)

const (
	maxFetchURLs     = 3
	fetchTimeout     = 10 * time.Second
	summaryMaxTokens = 1500
	summaryTemp      = 0.3
)

// Completer is the slice of the vendor client the summarizer needs.
type Completer interface {
	ChatComplete(ctx context.Context, req openai.ChatRequest) (string, error)
	Configured() bool
}

// PageResult is one fetched or searched web result.
type PageResult struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Content   string    `json:"content"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Result is the search operation output.
type Result struct {
	Summary   string       `json:"summary"`
	Sources   []PageResult `json:"sources"`
	Query     string       `json:"query"`
	Timestamp time.Time    `json:"timestamp"`
}

// Service performs web search and summarization.
type Service struct {
	httpClient *http.Client
	completer  Completer
	model      string
	ddgBaseURL string
	logger     *slog.Logger
}

// NewService creates a search Service summarizing with the given model.
func NewService(completer Completer, model string) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: fetchTimeout},
		completer:  completer,
		model:      model,
		ddgBaseURL: "https://api.duckduckgo.com",
		logger:     slog.Default(),
	}
}

// SetDuckDuckGoBaseURL overrides the instant-answer endpoint (for testing).
func (s *Service) SetDuckDuckGoBaseURL(u string) {
	s.ddgBaseURL = strings.TrimRight(u, "/")
}

// SetHTTPClient overrides the page-fetch client (for testing).
func (s *Service) SetHTTPClient(c *http.Client) {
	s.httpClient = c
}

// Browse runs the search operation. When urls are given they are fetched
// directly (at most three); otherwise the query goes to the instant-answer
// API. Collected results are summarized via the completion endpoint; when
// summarization is unavailable or fails, a deterministic fallback summary is
// returned instead. Individual fetch failures are skipped, never fatal.
func (s *Service) Browse(ctx context.Context, query string, urls []string) (Result, error) {
	var results []PageResult
	if len(urls) > 0 {
		results = s.fetchPages(ctx, urls)
	} else if query != "" {
		results = s.instantAnswers(ctx, query)
	}

	res := Result{
		Sources:   results,
		Query:     query,
		Timestamp: time.Now().UTC(),
	}
	if res.Sources == nil {
		res.Sources = []PageResult{}
	}

	if len(results) > 0 && s.completer.Configured() {
		summary, err := s.summarize(ctx, query, results)
		if err == nil {
			res.Summary = summary
			return res, nil
		}
		s.logger.Warn("search summarization failed, using fallback", "error", err)
	}

	res.Summary = fallbackSummary(query, results)
	return res, nil
}

const summarySystemPrompt = "You are a helpful assistant that summarizes web search results. Always include proper citations and be factual."

func (s *Service) summarize(ctx context.Context, query string, results []PageResult) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Please provide a comprehensive summary of the following web search results for the query %q:\n\n", query)
	for i, r := range results {
		src := r.Source
		if src == "" {
			src = "Web"
		}
		fmt.Fprintf(&sb, "%d. %s\n  URL: %s\n  Content: %s\n  Source: %s\n  Retrieved: %s\n\n",
			i+1, r.Title, r.URL, r.Content, src, r.Timestamp.Format(time.RFC3339))
	}
	sb.WriteString("Please synthesize this information into a clear, informative response with proper citations using [1], [2], etc. format.")

	messages, err := marshalMessages([]openai.ChatMessage{
		{Role: "system", Content: summarySystemPrompt},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return "", err
	}

	return s.completer.ChatComplete(ctx, openai.ChatRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: summaryTemp,
		MaxTokens:   summaryMaxTokens,
	})
}

func marshalMessages(msgs []openai.ChatMessage) (json.RawMessage, error) {
	b, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("marshaling messages: %w", err)
	}
	return b, nil
}

// fallbackSummary is the deterministic answer used when no summarizer is
// available or it failed.
func fallbackSummary(query string, results []PageResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("I couldn't find recent information about %q. This might be due to search limitations or the query being too specific.", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d relevant result(s) for %q. ", len(results), query)
	for i, r := range results {
		content := r.Content
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Fprintf(&sb, "[%d] %s: %s ", i+1, r.Title, content)
	}
	return strings.TrimSpace(sb.String())
}
