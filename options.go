package lio

import (
	"context"
	"time"

	"github.com/w-h-a/lio/extractor"
	"github.com/w-h-a/lio/internal/pool"
	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	Pool          *pool.Pool
	Logger        *zap.Logger
	Extractor     extractor.Extractor
	MaxSessions   int
	IdleTTL       time.Duration
	SweepInterval time.Duration
	ChunkSize     int
	TopK          int
	ContextChars  int
	MinScore      *float32
	ChunkChars    int
	Context       context.Context
}

func WithPool(p *pool.Pool) Option {
	return func(o *Options) {
		o.Pool = p
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithExtractor(e extractor.Extractor) Option {
	return func(o *Options) {
		o.Extractor = e
	}
}

func WithMaxSessions(n int) Option {
	return func(o *Options) {
		o.MaxSessions = n
	}
}

// WithIdleTTL drops sessions unused for d. Sweeping runs every interval
// once Start is called.
func WithIdleTTL(d time.Duration, interval time.Duration) Option {
	return func(o *Options) {
		o.IdleTTL = d
		o.SweepInterval = interval
	}
}

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

func WithContextChars(n int) Option {
	return func(o *Options) {
		o.ContextChars = n
	}
}

func WithMinScore(score float32) Option {
	return func(o *Options) {
		o.MinScore = &score
	}
}

// WithChunkChars bounds the size of records cut from uploaded files.
func WithChunkChars(n int) Option {
	return func(o *Options) {
		o.ChunkChars = n
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxSessions:   1024,
		SweepInterval: time.Minute,
		ChunkSize:     50,
		TopK:          5,
		ContextChars:  500,
		ChunkChars:    2000,
		Context:       context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Pool == nil {
		options.Pool = pool.New(0)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}
