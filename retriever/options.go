package retriever

import "context"

const defaultTopK = 5

type RetrieveOption func(*RetrieveOptions)

type RetrieveOptions struct {
	TopK           int
	MinScore       *float32
	ConversationId string
	Kind           string
	Context        context.Context
}

func WithTopK(k int) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.TopK = k
	}
}

// WithMinScore drops snippets scoring below the cutoff. Without it every
// hit is kept.
func WithMinScore(score float32) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.MinScore = &score
	}
}

func WithConversationId(id string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.ConversationId = id
	}
}

func WithKind(kind string) RetrieveOption {
	return func(o *RetrieveOptions) {
		o.Kind = kind
	}
}

func NewRetrieveOptions(opts ...RetrieveOption) RetrieveOptions {
	options := RetrieveOptions{
		TopK:    defaultTopK,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
