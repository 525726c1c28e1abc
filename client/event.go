package client

import (
	"context"
	"log/slog"
	"time"

	ai "github.com/spetersoncode/jdcompare"
	"github.com/spetersoncode/jdcompare/internal/retry"
)

// EventType identifies the kind of event occurring during provider calls.
type EventType string

const (
	// EventRequestStart fires before a provider call begins.
	EventRequestStart EventType = "request_start"

	// EventRequestComplete fires after a call succeeds. For streams this
	// means the stream was opened.
	EventRequestComplete EventType = "request_complete"

	// EventRequestError fires when a call fails after all retries.
	EventRequestError EventType = "request_error"

	// EventRetry fires before a failed attempt is retried.
	EventRetry EventType = "retry"
)

// Event represents an observable occurrence during provider calls.
type Event struct {
	Type      EventType
	Operation string
	Provider  ai.Provider

	// Duration is the elapsed time for completed or failed calls.
	Duration time.Duration

	// Error contains the error for EventRequestError.
	Error error

	// RetryEvent contains the underlying retry event for EventRetry.
	RetryEvent *retry.Event

	Timestamp time.Time
}

// emit sends an event with timestamp to the channel without blocking.
func (r *Registry) emit(event Event) {
	if r.cfg.Events == nil {
		return
	}
	event.Timestamp = time.Now()
	select {
	case r.cfg.Events <- event:
	default:
		// Channel full - don't block
	}
}

// LogEvents writes each event from events to logger until the channel is
// closed or ctx is done. Completed and failed calls carry their duration.
func LogEvents(ctx context.Context, events <-chan Event, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			attrs := []any{"provider", ev.Provider, "operation", ev.Operation}
			switch ev.Type {
			case EventRequestComplete:
				logger.Debug("provider call completed", append(attrs, "duration_ms", ev.Duration.Milliseconds())...)
			case EventRequestError:
				logger.Warn("provider call failed", append(attrs, "duration_ms", ev.Duration.Milliseconds(), "error", ev.Error)...)
			case EventRequestStart:
				logger.Debug("provider call started", attrs...)
			}
		}
	}
}
