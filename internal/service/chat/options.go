package chat

import "go.uber.org/zap"

const (
	defaultChunkSize    = 50
	defaultTopK         = 5
	defaultContextChars = 500
)

type Option func(*Options)

type Options struct {
	ChunkSize    int
	TopK         int
	ContextChars int
	MinScore     *float32
	Logger       *zap.Logger
}

// WithChunkSize sets the number of characters per streamed slice.
func WithChunkSize(n int) Option {
	return func(o *Options) {
		o.ChunkSize = n
	}
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

// WithContextChars caps how much of each snippet goes into the prompt.
func WithContextChars(n int) Option {
	return func(o *Options) {
		o.ContextChars = n
	}
}

// WithMinScore drops retrieved snippets below score. Any value is enforced,
// negative ones included.
func WithMinScore(score float32) Option {
	return func(o *Options) {
		o.MinScore = &score
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		ChunkSize:    defaultChunkSize,
		TopK:         defaultTopK,
		ContextChars: defaultContextChars,
		Logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.ChunkSize <= 0 {
		options.ChunkSize = defaultChunkSize
	}
	if options.TopK <= 0 {
		options.TopK = defaultTopK
	}
	if options.ContextChars <= 0 {
		options.ContextChars = defaultContextChars
	}
	return options
}
