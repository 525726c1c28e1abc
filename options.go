package jdcompare

// Options contains per-request overrides for a chat stream.
type Options struct {
	Model     string
	MaxTokens int
}

// Option is a functional option for configuring chat requests.
type Option func(*Options)

// WithModel overrides the adapter's chat model for one request.
// An empty model leaves the configured default in place.
func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// ApplyOptions applies functional options to an Options struct.
func ApplyOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
