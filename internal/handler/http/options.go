package http

import "go.uber.org/zap"

type Option func(*Options)

type Options struct {
	UploadDir string
	MaxUpload int64
	Logger    *zap.Logger
}

func WithUploadDir(dir string) Option {
	return func(o *Options) {
		o.UploadDir = dir
	}
}

func WithMaxUpload(n int64) Option {
	return func(o *Options) {
		o.MaxUpload = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		UploadDir: "uploads",
		MaxUpload: 32 << 20,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	return options
}
