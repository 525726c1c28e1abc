package jdcompare

import "context"

// ChatProvider is the capability set every generation backend implements.
type ChatProvider interface {
	// ChatStream sends the prompt and returns a channel of streaming events.
	// The channel is finite and not restartable: it is closed after a Done
	// event, after a single event carrying Err, or when ctx is cancelled.
	// An error returned directly means the stream could not be opened.
	ChatStream(ctx context.Context, parts PromptParts, opts ...Option) (<-chan StreamEvent, error)

	// ExtractLabels asks the backend for the title and company of a job
	// description. Unparseable replies yield empty Labels and a nil error;
	// only transport and backend failures are returned.
	ExtractLabels(ctx context.Context, text string) (Labels, error)
}
