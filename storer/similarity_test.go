package storer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	require.InDelta(t, 1.0, Score(Cosine, a, a), 1e-6)
	require.InDelta(t, 0.0, Score(Cosine, a, b), 1e-6)
	require.InDelta(t, 1.0, Score(Dot, a, a), 1e-6)
	require.InDelta(t, 1.0, Score(Euclidean, a, a), 1e-6)
	require.Less(t, Score(Euclidean, a, b), Score(Euclidean, a, a))
	require.Zero(t, Score(Cosine, a, []float32{1}))
}

func TestParseDistance(t *testing.T) {
	d, err := ParseDistance("dot")
	require.NoError(t, err)
	require.Equal(t, Dot, d)

	d, err = ParseDistance("")
	require.NoError(t, err)
	require.Equal(t, Cosine, d)

	_, err = ParseDistance("manhattan")
	require.Error(t, err)
}

func TestFilterMatch(t *testing.T) {
	rec := Record{ConversationId: "c1", Kind: KindSystem}

	require.True(t, Filter{}.Match(rec))
	require.True(t, Filter{ConversationId: "c1"}.Match(rec))
	require.False(t, Filter{ConversationId: "c2"}.Match(rec))
	require.False(t, Filter{Kind: KindUser}.Match(rec))
}
