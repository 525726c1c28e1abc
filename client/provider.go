package client

import (
	"context"
	"time"

	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/retry"
)

// Operation names reported in events and logs.
const (
	OperationChatStream    = "chat_stream"
	OperationExtractLabels = "extract_labels"
)

// retryingProvider retries opening a stream and label extraction on
// transient errors. Tokens already flowing are never retried.
type retryingProvider struct {
	name     ai.Provider
	inner    ai.ChatProvider
	registry *Registry
}

func (p *retryingProvider) ChatStream(ctx context.Context, parts ai.PromptParts, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	start := time.Now()
	p.registry.emit(Event{Type: EventRequestStart, Operation: OperationChatStream, Provider: p.name})

	ch, err := retry.DoStream(ctx, p.registry.retryFor(OperationChatStream, p.name), func() (<-chan ai.StreamEvent, error) {
		return p.inner.ChatStream(ctx, parts, opts...)
	})
	p.registry.finish(OperationChatStream, p.name, start, err)
	return ch, err
}

func (p *retryingProvider) ExtractLabels(ctx context.Context, text string) (ai.Labels, error) {
	start := time.Now()
	p.registry.emit(Event{Type: EventRequestStart, Operation: OperationExtractLabels, Provider: p.name})

	labels, err := retry.Do(ctx, p.registry.retryFor(OperationExtractLabels, p.name), func() (ai.Labels, error) {
		return p.inner.ExtractLabels(ctx, text)
	})
	p.registry.finish(OperationExtractLabels, p.name, start, err)
	return labels, err
}

// retryFor returns the registry's retry config with a hook that logs and
// emits every retry of the given operation.
func (r *Registry) retryFor(operation string, provider ai.Provider) retry.Config {
	cfg := r.retryConfig
	cfg.OnRetry = func(e retry.Event) {
		r.logger.Warn("retrying provider call",
			"provider", provider,
			"operation", operation,
			"attempt", e.Attempt,
			"max_attempts", e.MaxAttempts,
			"delay_ms", e.Delay.Milliseconds(),
			"error", e.Err,
		)
		re := e
		r.emit(Event{Type: EventRetry, Operation: operation, Provider: provider, RetryEvent: &re})
	}
	return cfg
}

func (r *Registry) finish(operation string, provider ai.Provider, start time.Time, err error) {
	if err != nil {
		r.emit(Event{
			Type:      EventRequestError,
			Operation: operation,
			Provider:  provider,
			Duration:  time.Since(start),
			Error:     err,
		})
		return
	}
	r.emit(Event{
		Type:      EventRequestComplete,
		Operation: operation,
		Provider:  provider,
		Duration:  time.Since(start),
	})
}

var _ ai.ChatProvider = (*retryingProvider)(nil)
