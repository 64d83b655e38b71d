package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/w-h-a/lio/embedder"
	"github.com/w-h-a/lio/embedder/hash"
	"github.com/w-h-a/lio/generator"
	"github.com/w-h-a/lio/index"
	"github.com/w-h-a/lio/internal/pool"
	"github.com/w-h-a/lio/internal/service/session"
	"github.com/w-h-a/lio/retriever"
	"github.com/w-h-a/lio/retriever/vector"
	"github.com/w-h-a/lio/storer/memory"
	"go.uber.org/zap/zaptest"
)

type scriptedGenerator struct {
	mtx     sync.Mutex
	output  string
	err     error
	prompts []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.output, g.err
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("model offline")
}

func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("model offline")
}

type failingRetriever struct{}

func (failingRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.RetrieveOption) ([]retriever.Snippet, error) {
	return nil, index.ErrIndexQuery
}

func (failingRetriever) RetrieveByVector(ctx context.Context, vec []float32, opts ...retriever.RetrieveOption) ([]retriever.Snippet, error) {
	return nil, index.ErrIndexQuery
}

type fixture struct {
	chat     *Service
	sessions *session.Service
	gen      *scriptedGenerator
	index    *index.VectorIndex
}

type fixtureOptions struct {
	embedder  embedder.Embedder
	retriever retriever.Retriever
}

func newFixture(t *testing.T, fo fixtureOptions, opts ...Option) *fixture {
	t.Helper()

	gen := &scriptedGenerator{}

	registry := generator.NewRegistry("openai")
	registry.Register("openai", func() (generator.Generator, error) { return gen, nil })

	sessions := session.New(registry, session.WithLogger(zaptest.NewLogger(t)))

	emb := hash.NewEmbedder()
	p := pool.New(4)

	idx := index.New(memory.NewStorer(), emb, index.WithPool(p))
	require.NoError(t, idx.CreateOrReset(context.Background(), index.DefaultConfig()))

	ret := fo.retriever
	if ret == nil {
		ret = vector.NewRetriever(idx, emb, p)
	}

	chatEmb := fo.embedder
	if chatEmb == nil {
		chatEmb = emb
	}

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)

	return &fixture{
		chat:     New(sessions, chatEmb, ret, p, opts...),
		sessions: sessions,
		gen:      gen,
		index:    idx,
	}
}

func collect(slices *[]string) Emit {
	return func(s string) error {
		*slices = append(*slices, s)
		return nil
	}
}

func TestStreamSlicesAndHistory(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	require.NoError(t, f.index.UpsertBatch(ctx, []index.Record{
		{Id: "doc1", Content: "The sky is blue."},
	}))

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	f.gen.output = strings.Repeat("abcdefghij", 12) + "xyz"

	var got []string
	require.NoError(t, f.chat.Stream(ctx, "s1", "What color is the sky?", collect(&got)))

	require.Len(t, got, 3)
	require.Len(t, []rune(got[0]), 50)
	require.Len(t, []rune(got[1]), 50)
	require.Equal(t, strings.Join(got, ""), f.gen.output)

	history := f.sessions.History(ctx, "s1")
	require.Equal(t, []session.Turn{
		{Role: session.RoleUser, Text: "What color is the sky?"},
		{Role: session.RoleAssistant, Text: f.gen.output},
	}, history)

	require.Len(t, f.gen.prompts, 1)
	prompt := f.gen.prompts[0]
	require.Contains(t, prompt, "Context from document: The sky is blue.")
	require.Contains(t, prompt, "\nUser: What color is the sky?\n")
	require.True(t, strings.HasSuffix(prompt, groundingNote))
}

func TestHistoryGrowsByTwoPerSuccessfulTurn(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	f.gen.output = "ok"

	for k := 1; k <= 3; k++ {
		var got []string
		require.NoError(t, f.chat.Stream(ctx, "s1", "hello", collect(&got)))
		require.Len(t, f.sessions.History(ctx, "s1"), 2*k)
	}

	f.gen.output = ""
	f.gen.err = errors.New("rate limited")

	var got []string
	err = f.chat.Stream(ctx, "s1", "hello", collect(&got))

	var turnErr *TurnError
	require.True(t, errors.As(err, &turnErr))
	require.Equal(t, StateGenerating, turnErr.Stage)
	require.Equal(t, []string{ApologyMessage}, got)
	require.Len(t, f.sessions.History(ctx, "s1"), 6)
}

func TestStreamUnknownSession(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	var got []string
	err := f.chat.Stream(context.Background(), "missing", "hello", collect(&got))
	require.ErrorIs(t, err, session.ErrSessionNotFound)
	require.Empty(t, got)
}

func TestStreamEmptyMessage(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	_, err := f.sessions.GetOrCreate(context.Background(), "s1", "A1", "")
	require.NoError(t, err)

	var got []string
	err = f.chat.Stream(context.Background(), "s1", "   ", collect(&got))
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Empty(t, got)
}

func TestStreamEmbeddingFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{embedder: failingEmbedder{}})
	ctx := context.Background()

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	var got []string
	err = f.chat.Stream(ctx, "s1", "hello", collect(&got))

	var turnErr *TurnError
	require.True(t, errors.As(err, &turnErr))
	require.Equal(t, StateEmbeddingQuery, turnErr.Stage)
	require.Equal(t, []string{EmbeddingFailureMessage}, got)
	require.Empty(t, f.sessions.History(ctx, "s1"))
	require.Empty(t, f.gen.prompts)
}

func TestStreamRetrievalFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{retriever: failingRetriever{}})
	ctx := context.Background()

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	var got []string
	err = f.chat.Stream(ctx, "s1", "hello", collect(&got))
	require.ErrorIs(t, err, index.ErrIndexQuery)
	require.Equal(t, []string{ApologyMessage}, got)
	require.Empty(t, f.sessions.History(ctx, "s1"))
}

func TestStreamConsumerGone(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	f.gen.output = strings.Repeat("x", 200)

	gone := errors.New("client disconnected")
	calls := 0

	err = f.chat.Stream(ctx, "s1", "hello", func(s string) error {
		calls++
		if calls == 2 {
			return gone
		}
		return nil
	})
	require.ErrorIs(t, err, gone)
	require.Equal(t, 2, calls)
	require.Empty(t, f.sessions.History(ctx, "s1"))
}

func TestStreamCancelledContext(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	_, err := f.sessions.GetOrCreate(context.Background(), "s1", "A1", "")
	require.NoError(t, err)

	f.gen.output = "ok"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var got []string
	err = f.chat.Stream(ctx, "s1", "hello", collect(&got))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, got)
	require.Empty(t, f.sessions.History(context.Background(), "s1"))
}

func TestStreamCustomChunkSize(t *testing.T) {
	f := newFixture(t, fixtureOptions{}, WithChunkSize(4))
	ctx := context.Background()

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	f.gen.output = "héllo wörld"

	var got []string
	require.NoError(t, f.chat.Stream(ctx, "s1", "hi", collect(&got)))
	require.Equal(t, []string{"héll", "o wö", "rld"}, got)
}

func TestConcurrentTurnsSameSession(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	_, err := f.sessions.GetOrCreate(ctx, "s1", "A1", "")
	require.NoError(t, err)

	f.gen.output = "answer"

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.chat.Stream(ctx, "s1", "hello", func(string) error { return nil })
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	history := f.sessions.History(ctx, "s1")
	require.Len(t, history, 16)
	for i := 0; i < len(history); i += 2 {
		require.Equal(t, session.RoleUser, history[i].Role)
		require.Equal(t, session.RoleAssistant, history[i+1].Role)
	}
}

func TestSlices(t *testing.T) {
	require.Empty(t, slices("", 50))
	require.Equal(t, []string{"abc"}, slices("abc", 50))
	require.Equal(t, []string{"ab", "cd", "e"}, slices("abcde", 2))
}

func TestBuildPromptTruncatesContext(t *testing.T) {
	long := strings.Repeat("a", 600)

	prompt := buildPrompt([]retriever.Snippet{{Content: long}, {Content: "short"}}, "q", 500)

	require.Equal(t,
		"Context from document: "+strings.Repeat("a", 500)+"\n\nContext from document: short\nUser: q\n"+groundingNote,
		prompt,
	)
}
