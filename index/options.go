package index

import (
	"github.com/w-h-a/lio/internal/pool"
	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	Pool   *pool.Pool
	Logger *zap.Logger
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

func NewOptions(opts ...Option) Options {
	options := Options{}
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
