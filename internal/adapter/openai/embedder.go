package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Embedder implements embedding.Embedder over the embeddings API.
// One outbound call per invocation, no caching, no local retry.
type Embedder struct {
	client openai.Client
	model  string
	dims   int
}

// NewEmbedder creates an embedder for the given model and dimensionality.
func NewEmbedder(apiKey, model string, dims int) *Embedder {
	return &Embedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		dims:   dims,
	}
}

// Embed returns the embedding vector for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, errors.New("embed: response contains no data")
	}

	raw := res.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, f := range raw {
		out[i] = float32(f)
	}
	return out, nil
}

// Dimensions returns the configured embedding dimensionality.
func (e *Embedder) Dimensions() int {
	return e.dims
}
