package embedder

import (
	"context"
	"errors"
)

var ErrEmbedding = errors.New("embedding failed")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
