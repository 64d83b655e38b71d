package server

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	Name        string
	Address     string
	ReadTimeout time.Duration
	Context     context.Context
}

func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

// WithReadTimeout bounds reading a request. Writes are left unbounded so
// long answers can stream.
func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ReadTimeout = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Name:        "lio",
		Address:     ":0",
		ReadTimeout: 30 * time.Second,
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
