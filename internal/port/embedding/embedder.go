// Package embedding defines the text embedding port (interface).
package embedding

import "context"

// Embedder turns text into a fixed-dimension vector. One outbound call per
// invocation; no caching, no batching, no local retry. Dimensions must
// match the vector columns of the store, checked once at startup.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
