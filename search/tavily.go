package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Tavily API endpoint.
	DefaultBaseURL = "https://api.tavily.com"

	// DefaultMaxResults bounds the number of sources per query.
	DefaultMaxResults = 5

	defaultTimeout = 30 * time.Second
)

// TavilyClient implements Provider against the Tavily search API.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	maxResults int
	httpc      *http.Client
	log        zerolog.Logger
}

// TavilyOption configures the client.
type TavilyOption func(*TavilyClient)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) TavilyOption {
	return func(c *TavilyClient) { c.baseURL = u }
}

// WithMaxResults bounds how many sources a search returns.
func WithMaxResults(n int) TavilyOption {
	return func(c *TavilyClient) { c.maxResults = n }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) TavilyOption {
	return func(c *TavilyClient) { c.httpc = h }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) TavilyOption {
	return func(c *TavilyClient) { c.log = log }
}

// NewTavilyClient creates a Tavily search client.
func NewTavilyClient(apiKey string, opts ...TavilyOption) *TavilyClient {
	c := &TavilyClient{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		maxResults: DefaultMaxResults,
		httpc:      &http.Client{Timeout: defaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search queries Tavily and formats the response into a readable summary:
// the AI-generated answer when available, followed by numbered sources.
func (c *TavilyClient) Search(ctx context.Context, query string) (string, error) {
	body, err := json.Marshal(tavilyRequest{
		APIKey:        c.apiKey,
		Query:         query,
		MaxResults:    c.maxResults,
		IncludeAnswer: true,
	})
	if err != nil {
		return "", fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tavily: status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode search response: %w", err)
	}

	c.log.Debug().Str("query", query).Int("results", len(parsed.Results)).Msg("web search completed")
	return formatResults(parsed), nil
}

func formatResults(resp tavilyResponse) string {
	var parts []string
	if resp.Answer != "" {
		parts = append(parts, fmt.Sprintf("Answer: %s\n", resp.Answer))
	}
	if len(resp.Results) > 0 {
		parts = append(parts, "Sources:")
		for i, r := range resp.Results {
			parts = append(parts, fmt.Sprintf("%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.URL, r.Content))
		}
	}
	if len(parts) == 0 {
		return "No results found"
	}
	return strings.Join(parts, "\n")
}

var _ Provider = (*TavilyClient)(nil)
