package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticGenerator string

func (g staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return string(g), nil
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry("openai")
	r.Register("openai", func() (Generator, error) { return staticGenerator("a"), nil })
	r.Register("Anthropic", func() (Generator, error) { return staticGenerator("b"), nil })

	g, err := r.Resolve("")
	require.NoError(t, err)
	rsp, _ := g.Generate(context.Background(), "x")
	require.Equal(t, "a", rsp)

	g, err = r.Resolve(" ANTHROPIC ")
	require.NoError(t, err)
	rsp, _ = g.Generate(context.Background(), "x")
	require.Equal(t, "b", rsp)

	_, err = r.Resolve("mistral")
	require.True(t, errors.Is(err, ErrUnknownProvider))

	require.Equal(t, []string{"anthropic", "openai"}, r.Choices())
}

func TestOptionsDefaults(t *testing.T) {
	o := NewOptions(WithSystem("sys"), WithTemperature(0.2))
	require.Equal(t, 300, o.MaxTokens)
	require.Equal(t, float32(0.2), o.Temperature)
	require.Equal(t, "sys", o.System)
	require.Empty(t, NewOptions().System)
}

func TestObserveWrapsFailures(t *testing.T) {
	rsp, err := Observe(t.Context(), "fake", "m", func(ctx context.Context) (string, Usage, error) {
		return "ok", Usage{InputTokens: 3, OutputTokens: 1}, nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", rsp)

	_, err = Observe(t.Context(), "fake", "m", func(ctx context.Context) (string, Usage, error) {
		return "", Usage{}, nil
	})
	require.ErrorIs(t, err, ErrGeneration)
	require.ErrorContains(t, err, "no response from fake")

	boom := errors.New("boom")
	_, err = Observe(t.Context(), "fake", "m", func(ctx context.Context) (string, Usage, error) {
		return "", Usage{}, boom
	})
	require.ErrorIs(t, err, ErrGeneration)
	require.ErrorIs(t, err, boom)
}
