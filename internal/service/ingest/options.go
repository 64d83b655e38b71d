package ingest

import (
	"github.com/w-h-a/lio/extractor"
	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	Extractor           extractor.Extractor
	ChunkChars          int
	DefaultConversation string
	Logger              *zap.Logger
}

func WithExtractor(e extractor.Extractor) Option {
	return func(o *Options) {
		o.Extractor = e
	}
}

// WithChunkChars bounds the size of each record cut from an extracted file.
func WithChunkChars(n int) Option {
	return func(o *Options) {
		o.ChunkChars = n
	}
}

func WithDefaultConversation(id string) Option {
	return func(o *Options) {
		o.DefaultConversation = id
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		ChunkChars:          2000,
		DefaultConversation: "default",
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}
