package queue

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Option func(*Options)

type Options struct {
	Tracker     *Tracker
	Logger      *zap.Logger
	Concurrency int
	MaxRetry    int
	Timeout     time.Duration
	Backoff     time.Duration
	Name        string
	Context     context.Context
}

func WithTracker(t *Tracker) Option {
	return func(o *Options) {
		o.Tracker = t
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = n
	}
}

// WithMaxRetry sets how many times a failed task is retried after the
// first attempt.
func WithMaxRetry(n int) Option {
	return func(o *Options) {
		o.MaxRetry = n
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

func WithBackoff(d time.Duration) Option {
	return func(o *Options) {
		o.Backoff = d
	}
}

// WithName sets the queue name tasks are enqueued on.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Concurrency: 4,
		MaxRetry:    3,
		Timeout:     10 * time.Minute,
		Backoff:     time.Second,
		Name:        "ingest",
		Context:     context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Tracker == nil {
		options.Tracker = NewTracker(0)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 1
	}
	if options.MaxRetry < 0 {
		options.MaxRetry = 0
	}
	return options
}
