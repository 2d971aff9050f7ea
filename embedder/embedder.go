// Package embedder defines the embedding-provider boundary.
//
// The core pipeline treats providers as an opaque function from texts to
// vectors. Transient-failure handling (retry, backoff, rate limiting)
// lives here, on the caller side of the boundary, never inside the
// indexing core.
package embedder

import (
	"context"
)

// Embedder generates one embedding vector per input text,
// order-preserving and same-length. A failed call means "no vectors
// available", which callers treat as skippable, not fatal.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	ModelInfo() string
}
