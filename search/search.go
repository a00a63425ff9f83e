// Package search defines the web search provider port and its Tavily
// implementation.
package search

import "context"

// Provider executes a web search and returns results already formatted for
// feeding back to a language model.
type Provider interface {
	Search(ctx context.Context, query string) (string, error)
}
