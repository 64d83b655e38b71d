package openai

import (
	"context"

	"github.com/w-h-a/lio/generator"
)

type baseURLKey struct{}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) generator.Option {
	return func(o *generator.Options) {
		o.Context = context.WithValue(o.Context, baseURLKey{}, url)
	}
}

func BaseURLFrom(ctx context.Context) (string, bool) {
	url, ok := ctx.Value(baseURLKey{}).(string)
	return url, ok && len(url) > 0
}
