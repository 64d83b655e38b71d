package hash

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/storer"
)

func TestEmbedDeterministic(t *testing.T) {
	e := NewEmbedder(embedder.WithDimension(64))
	ctx := context.Background()

	a, err := e.Embed(ctx, "The sky is blue.")
	require.NoError(t, err)
	require.Len(t, a, 64)

	b, err := e.Embed(ctx, "The sky is blue.")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestEmbedRelatedTextsScoreHigher(t *testing.T) {
	e := NewEmbedder()
	ctx := context.Background()

	vecs, err := e.EmbedBatch(ctx, []string{
		"The sky is blue.",
		"Grass grows quickly after rain.",
		"What color is the sky?",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	require.Len(t, vecs[0], defaultDimension)

	related := storer.CosineSimilarity(vecs[2], vecs[0])
	unrelated := storer.CosineSimilarity(vecs[2], vecs[1])
	require.Greater(t, related, unrelated)
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewEmbedder()

	_, err := e.Embed(context.Background(), "  ... ")
	require.Error(t, err)
	require.True(t, errors.Is(err, embedder.ErrEmbedding))
}

func TestEmbedStopwordsOnly(t *testing.T) {
	e := NewEmbedder()

	vec, err := e.Embed(context.Background(), "what is the")
	require.NoError(t, err)
	require.NotEmpty(t, vec)
}
