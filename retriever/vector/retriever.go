package vector

import (
	"context"
	"fmt"

	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/internal/pool"
	"github.com/w-h-a/lio/retriever"
)

type vectorRetriever struct {
	index    *index.VectorIndex
	embedder embedder.Embedder
	pool     *pool.Pool
}

func (r *vectorRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.RetrieveOption) ([]retriever.Snippet, error) {
	var vec []float32

	err := r.pool.Do(ctx, func(ctx context.Context) error {
		var err error
		vec, err = r.embedder.Embed(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", embedder.ErrEmbedding, err)
	}

	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", embedder.ErrEmbedding)
	}

	return r.RetrieveByVector(ctx, vec, opts...)
}

func (r *vectorRetriever) RetrieveByVector(ctx context.Context, vector []float32, opts ...retriever.RetrieveOption) ([]retriever.Snippet, error) {
	options := retriever.NewRetrieveOptions(opts...)

	filter := index.Filter{
		ConversationId: options.ConversationId,
		Kind:           index.Kind(options.Kind),
	}

	hits, err := r.index.Search(ctx, vector, options.TopK, filter)
	if err != nil {
		return nil, err
	}

	snippets := make([]retriever.Snippet, 0, len(hits))

	for _, hit := range hits {
		if options.MinScore != nil && hit.Score < *options.MinScore {
			continue
		}

		snippets = append(snippets, retriever.Snippet{
			Id:             hit.Id,
			Content:        hit.Content,
			Score:          hit.Score,
			Kind:           string(hit.Kind),
			ConversationId: hit.ConversationId,
			CreatedAt:      hit.CreatedAt,
			Metadata:       hit.Metadata,
		})
	}

	return snippets, nil
}

func NewRetriever(idx *index.VectorIndex, emb embedder.Embedder, p *pool.Pool) retriever.Retriever {
	if p == nil {
		p = pool.New(0)
	}

	return &vectorRetriever{
		index:    idx,
		embedder: emb,
		pool:     p,
	}
}
