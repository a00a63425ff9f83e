// Package mock provides a deterministic embedder for tests and offline runs.
package mock

import (
	"context"
	"hash/fnv"
	"math"
)

const defaultDimensions = 384

// Embedder generates hash-seeded pseudo-random unit vectors. Identical text
// always embeds to the identical vector; there is no real semantic
// similarity.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with the default dimensionality.
func New() *Embedder {
	return &Embedder{dimensions: defaultDimensions}
}

// Embed derives a deterministic unit vector from the text's FNV hash.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	for i := range vec {
		// LCG keeps the expansion deterministic per seed.
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

// Dimensions returns the embedding size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i, v := range vec {
		vec[i] = v / norm
	}
	return vec
}
