package generator

import "context"

const (
	defaultMaxTokens = 300
)

type Option func(*Options)

type Options struct {
	ApiKey       string
	Model        string
	System      string
	MaxTokens   int
	Temperature float32
	Context     context.Context
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithSystem sets the instruction sent through the provider's system
// channel, separate from the user prompt.
func WithSystem(system string) Option {
	return func(o *Options) {
		o.System = system
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithTemperature(t float32) Option {
	return func(o *Options) {
		o.Temperature = t
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		MaxTokens: defaultMaxTokens,
		Context:   context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
