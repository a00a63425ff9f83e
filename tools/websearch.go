package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adithya1123/cli-agent-w-graphiti/search"
)

// WebSearchName is the tool identifier the model calls for web search.
const WebSearchName = "web_search"

// WebSearch exposes a search.Provider as a model-callable tool.
type WebSearch struct {
	provider search.Provider
}

// NewWebSearch wraps the given search provider.
func NewWebSearch(p search.Provider) *WebSearch {
	return &WebSearch{provider: p}
}

func (w *WebSearch) Name() string {
	return WebSearchName
}

func (w *WebSearch) Description() string {
	return "Search the web for current information when you need up-to-date facts, news, prices, or information beyond your training data"
}

func (w *WebSearch) Schema() map[string]any {
	return ObjectSchema(map[string]any{
		"query": StringProperty("The search query to find relevant information on the web"),
	}, "query")
}

type webSearchArgs struct {
	Query string `json:"query"`
}

// Invoke runs the search and returns the formatted results.
func (w *WebSearch) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	var parsed webSearchArgs
	if err := json.Unmarshal(args, &parsed); err != nil {
		return "", fmt.Errorf("invalid web_search arguments: %w", err)
	}
	if parsed.Query == "" {
		return "", fmt.Errorf("web_search requires a non-empty query")
	}
	return w.provider.Search(ctx, parsed.Query)
}

var _ Tool = (*WebSearch)(nil)
