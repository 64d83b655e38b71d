package session

import (
	"time"

	"go.uber.org/zap"
)

const defaultMaxSessions = 1024

type Option func(*Options)

type Options struct {
	MaxSessions int
	IdleTTL     time.Duration
	Logger      *zap.Logger
	Clock       func() time.Time
}

// WithMaxSessions bounds the number of live sessions. The least recently
// used session is evicted when the bound is exceeded. Zero means unbounded.
func WithMaxSessions(n int) Option {
	return func(o *Options) {
		o.MaxSessions = n
	}
}

// WithIdleTTL makes Sweep drop sessions idle for longer than d. Zero
// disables idle expiry.
func WithIdleTTL(d time.Duration) Option {
	return func(o *Options) {
		o.IdleTTL = d
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxSessions: defaultMaxSessions,
		Logger:      zap.NewNop(),
		Clock:       time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
