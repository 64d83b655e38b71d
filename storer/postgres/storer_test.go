package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/storer"
)

func TestWhereClause(t *testing.T) {
	where, args := whereClause(storer.Filter{}, []any{"v", 5})
	require.Empty(t, where)
	require.Len(t, args, 2)

	where, args = whereClause(storer.Filter{ConversationId: "c1", Kind: storer.KindSystem}, []any{"v", 5})
	require.Equal(t, "WHERE conversation_id = $3 AND kind = $4", where)
	require.Equal(t, []any{"v", 5, "c1", "system"}, args)
}

func TestOperatorsFollowDistance(t *testing.T) {
	p := &postgresStorer{}

	p.setCollection(storer.Collection{Name: "documents", Distance: storer.Cosine})
	score, order := p.operators()
	require.Equal(t, "1 - (embedding <=> $1)", score)
	require.Equal(t, "embedding <=> $1", order)

	p.setCollection(storer.Collection{Name: "documents", Distance: storer.Dot})
	_, order = p.operators()
	require.Equal(t, "embedding <#> $1", order)

	p.setCollection(storer.Collection{Name: "documents", Distance: storer.Euclidean})
	_, order = p.operators()
	require.Equal(t, "embedding <-> $1", order)

	require.Equal(t, `"documents"`, p.table())
}
