package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/embedder/hash"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/internal/pool"
	"github.com/w-h-a/lio/retriever"
	"github.com/w-h-a/lio/storer/memory"
	"go.uber.org/zap/zaptest"
)

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("quota exceeded")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func setup(t *testing.T) (*index.VectorIndex, embedder.Embedder) {
	t.Helper()

	emb := hash.NewEmbedder()
	idx := index.New(memory.NewStorer(), emb, index.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, idx.CreateOrReset(context.Background(), index.DefaultConfig()))

	return idx, emb
}

func TestRetrieveSky(t *testing.T) {
	ctx := context.Background()
	idx, emb := setup(t)

	require.NoError(t, idx.UpsertBatch(ctx, []index.Record{
		{Id: "doc1", Content: "The sky is blue.", ConversationId: "default"},
		{Id: "doc2", Content: "Bananas are rich in potassium.", ConversationId: "default"},
		{Id: "doc3", Content: "Compilers translate source code.", ConversationId: "default"},
	}))

	r := NewRetriever(idx, emb, pool.New(2))

	rsp, err := r.Retrieve(ctx, "What color is the sky?", retriever.WithTopK(5))
	require.NoError(t, err)
	require.NotEmpty(t, rsp)
	require.LessOrEqual(t, len(rsp), 5)

	ids := make([]string, 0, len(rsp))
	for _, s := range rsp {
		ids = append(ids, s.Id)
	}
	require.Contains(t, ids, "doc1")
	require.Equal(t, "doc1", rsp[0].Id)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	idx, emb := setup(t)
	r := NewRetriever(idx, emb, nil)

	rsp, err := r.Retrieve(context.Background(), "anything at all")
	require.NoError(t, err)
	require.Empty(t, rsp)
}

func TestRetrieveMinScore(t *testing.T) {
	ctx := context.Background()
	idx, emb := setup(t)

	require.NoError(t, idx.UpsertBatch(ctx, []index.Record{
		{Id: "doc1", Content: "The sky is blue."},
		{Id: "doc2", Content: "Bananas are rich in potassium."},
	}))

	r := NewRetriever(idx, emb, nil)

	all, err := r.Retrieve(ctx, "sky blue")
	require.NoError(t, err)
	require.Len(t, all, 2)

	strict, err := r.Retrieve(ctx, "sky blue", retriever.WithMinScore(0.5))
	require.NoError(t, err)
	require.Len(t, strict, 1)
	require.Equal(t, "doc1", strict[0].Id)
}

func TestRetrieveNegativeMinScore(t *testing.T) {
	ctx := context.Background()

	idx := index.New(memory.NewStorer(), hash.NewEmbedder(), index.WithLogger(zaptest.NewLogger(t)))
	cfg := index.DefaultConfig()
	cfg.VectorSize = 2
	require.NoError(t, idx.CreateOrReset(ctx, cfg))

	require.NoError(t, idx.UpsertBatch(ctx, []index.Record{
		{Id: "same", Content: "a", Vector: []float32{1, 0}},
		{Id: "close", Content: "b", Vector: []float32{0.8, 0.6}},
		{Id: "opposite", Content: "c", Vector: []float32{-0.8, 0.6}},
	}))

	r := NewRetriever(idx, hash.NewEmbedder(), nil)

	all, err := r.RetrieveByVector(ctx, []float32{1, 0})
	require.NoError(t, err)
	require.Len(t, all, 3)

	cut, err := r.RetrieveByVector(ctx, []float32{1, 0}, retriever.WithMinScore(-0.2))
	require.NoError(t, err)
	require.Len(t, cut, 2)
	require.Equal(t, "same", cut[0].Id)
	require.Equal(t, "close", cut[1].Id)

	zero, err := r.RetrieveByVector(ctx, []float32{1, 0}, retriever.WithMinScore(0))
	require.NoError(t, err)
	require.Len(t, zero, 2)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	idx, _ := setup(t)
	r := NewRetriever(idx, failingEmbedder{}, nil)

	_, err := r.Retrieve(context.Background(), "hello")
	require.ErrorIs(t, err, embedder.ErrEmbedding)
}

func TestRetrieveFiltersConversation(t *testing.T) {
	ctx := context.Background()
	idx, emb := setup(t)

	require.NoError(t, idx.UpsertBatch(ctx, []index.Record{
		{Id: "a", Content: "The sky is blue.", ConversationId: "c1"},
		{Id: "b", Content: "The sky is grey.", ConversationId: "c2"},
	}))

	r := NewRetriever(idx, emb, nil)

	rsp, err := r.Retrieve(ctx, "sky", retriever.WithConversationId("c2"))
	require.NoError(t, err)
	require.Len(t, rsp, 1)
	require.Equal(t, "b", rsp[0].Id)
}
