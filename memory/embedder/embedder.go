// Package embedder defines the text-to-vector port used by the embedded
// local store. The production knowledge service computes embeddings
// server-side; this port only exists for offline development and tests.
package embedder

import "context"

// Embedder converts text to a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
