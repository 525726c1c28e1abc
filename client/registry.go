package client

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/provider/anthropic"
	"github.com/spetersoncode/jdcompare/internal/provider/google"
	"github.com/spetersoncode/jdcompare/internal/provider/openai"
	"github.com/spetersoncode/jdcompare/internal/retry"
)

// ProviderConfig holds the settings for one backend.
// Empty model names fall back to the adapter defaults.
type ProviderConfig struct {
	APIKey     string
	ChatModel  string
	LabelModel string
	BaseURL    string
}

// Config holds configuration for creating a Registry.
type Config struct {
	OpenAI    ProviderConfig
	Anthropic ProviderConfig
	Google    ProviderConfig

	// RetryConfig configures retry behavior for transient errors.
	// If nil, uses retry.DefaultConfig.
	RetryConfig *retry.Config

	// Events is an optional channel for receiving operation events.
	// Events are sent non-blocking; if the channel is full, events are dropped.
	Events chan<- Event

	// Logger receives retry and construction logs. Defaults to slog.Default.
	Logger *slog.Logger
}

func (c Config) provider(name ai.Provider) ProviderConfig {
	switch name {
	case ai.ProviderOpenAI:
		return c.OpenAI
	case ai.ProviderAnthropic:
		return c.Anthropic
	case ai.ProviderGoogle:
		return c.Google
	default:
		return ProviderConfig{}
	}
}

// ErrMissingAPIKey is returned when a provider is requested but no API key
// is configured for it.
type ErrMissingAPIKey struct {
	Provider string
}

func (e *ErrMissingAPIKey) Error() string {
	return fmt.Sprintf("no API key configured for %s", e.Provider)
}

// ConfigurationError marks the error as a configuration problem.
func (e *ErrMissingAPIKey) ConfigurationError() bool { return true }

// Factory constructs the adapter for one provider name.
type Factory func(ctx context.Context, cfg ProviderConfig) (ai.ChatProvider, error)

// Option configures a Registry.
type Option func(*Registry)

// WithFactory registers or replaces the constructor for a provider name.
func WithFactory(name ai.Provider, f Factory) Option {
	return func(r *Registry) {
		r.factories[name] = f
	}
}

// Registry maps provider names to adapter instances. Instances are built
// lazily on first use and reused for the life of the process.
type Registry struct {
	cfg         Config
	retryConfig retry.Config
	logger      *slog.Logger
	factories   map[ai.Provider]Factory

	mu        sync.RWMutex
	providers map[ai.Provider]ai.ChatProvider
}

// New creates a registry with the built-in OpenAI, Anthropic and Google
// adapters registered.
func New(cfg Config, opts ...Option) *Registry {
	retryConfig := retry.DefaultConfig()
	if cfg.RetryConfig != nil {
		retryConfig = *cfg.RetryConfig
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		cfg:         cfg,
		retryConfig: retryConfig,
		logger:      logger,
		factories: map[ai.Provider]Factory{
			ai.ProviderOpenAI:    newOpenAI,
			ai.ProviderAnthropic: newAnthropic,
			ai.ProviderGoogle:    newGoogle,
		},
		providers: make(map[ai.Provider]ai.ChatProvider),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the registered provider names, built-in providers first.
func (r *Registry) Names() []string {
	var names []string
	for _, p := range ai.Providers() {
		if _, ok := r.factories[p]; ok {
			names = append(names, p.String())
		}
	}
	var extra []string
	for p := range r.factories {
		if !slices.Contains(ai.Providers(), p) {
			extra = append(extra, p.String())
		}
	}
	slices.Sort(extra)
	return append(names, extra...)
}

// Resolve returns the adapter registered under name, constructing it on
// first access. Unknown names and missing credentials are reported as
// configuration errors.
func (r *Registry) Resolve(name string) (ai.ChatProvider, error) {
	key := ai.Provider(name)

	r.mu.RLock()
	if p, ok := r.providers[key]; ok {
		defer r.mu.RUnlock()
		return p, nil
	}
	r.mu.RUnlock()

	factory, ok := r.factories[key]
	if !ok {
		return nil, &ai.ConfigurationError{Provider: name, Reason: "unknown provider"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if p, ok := r.providers[key]; ok {
		return p, nil
	}

	inner, err := factory(context.Background(), r.cfg.provider(key))
	if err != nil {
		return nil, err
	}

	p := &retryingProvider{name: key, inner: inner, registry: r}
	r.providers[key] = p
	r.logger.Debug("provider initialized", "provider", name)
	return p, nil
}

func newOpenAI(_ context.Context, cfg ProviderConfig) (ai.ChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ErrMissingAPIKey{Provider: ai.ProviderOpenAI.String()}
	}
	opts := []openai.ClientOption{
		openai.WithModel(cfg.ChatModel),
		openai.WithLabelModel(cfg.LabelModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(cfg.APIKey, opts...), nil
}

func newAnthropic(_ context.Context, cfg ProviderConfig) (ai.ChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ErrMissingAPIKey{Provider: ai.ProviderAnthropic.String()}
	}
	opts := []anthropic.ClientOption{
		anthropic.WithModel(cfg.ChatModel),
		anthropic.WithLabelModel(cfg.LabelModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(cfg.APIKey, opts...), nil
}

func newGoogle(ctx context.Context, cfg ProviderConfig) (ai.ChatProvider, error) {
	if cfg.APIKey == "" {
		return nil, &ErrMissingAPIKey{Provider: ai.ProviderGoogle.String()}
	}
	opts := []google.ClientOption{
		google.WithModel(cfg.ChatModel),
		google.WithLabelModel(cfg.LabelModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, google.WithBaseURL(cfg.BaseURL))
	}
	client, err := google.New(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google client: %w", err)
	}
	return client, nil
}
