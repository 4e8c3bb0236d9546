// Package websearch defines the internet search port (interface).
package websearch

import (
	"context"
	"encoding/json"
)

// Searcher runs a web search and returns the provider's raw
// search-and-contents payload. The payload is passed through to the model
// verbatim; callers convert failures into a structured envelope.
type Searcher interface {
	Search(ctx context.Context, query string) (json.RawMessage, error)
}
