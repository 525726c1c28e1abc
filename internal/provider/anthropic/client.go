package anthropic

import (
	"context"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ai "github.com/spetersoncode/jdcompare"
)

const (
	// DefaultChatModel is used for chat streams when no model is configured.
	DefaultChatModel = "claude-sonnet-4-20250514"
	// DefaultLabelModel is used for label extraction when no model is configured.
	DefaultLabelModel = "claude-haiku-4-5-20251001"

	chatMaxTokens  = 4096
	labelMaxTokens = 100
)

// Client wraps the Anthropic SDK to implement ai.ChatProvider.
type Client struct {
	client     *anthropic.Client
	model      string
	labelModel string
}

type config struct {
	model      string
	labelModel string
	reqOpts    []option.RequestOption
}

// ClientOption configures the Anthropic client.
type ClientOption func(*config)

// WithModel sets the chat model.
func WithModel(model string) ClientOption {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLabelModel sets the model used for label extraction.
func WithLabelModel(model string) ClientOption {
	return func(c *config) {
		if model != "" {
			c.labelModel = model
		}
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) ClientOption {
	return func(c *config) {
		if url != "" {
			c.reqOpts = append(c.reqOpts, option.WithBaseURL(url))
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *config) {
		c.reqOpts = append(c.reqOpts, option.WithHTTPClient(hc))
	}
}

// New creates a new Anthropic client with the given API key. SDK-level
// retries are disabled; callers retry through the registry.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := config{model: DefaultChatModel, labelModel: DefaultLabelModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, cfg.reqOpts...)
	client := anthropic.NewClient(reqOpts...)

	return &Client{
		client:     &client,
		model:      cfg.model,
		labelModel: cfg.labelModel,
	}
}

// Model returns the configured chat model.
func (c *Client) Model() string { return c.model }

// ChatStream sends the prompt and returns a channel of streaming events.
// Only text deltas are forwarded. The first server event is read before
// returning, so failures to open the stream are reported as an error.
func (c *Client) ChatStream(ctx context.Context, parts ai.PromptParts, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}
	maxTokens := int64(chatMaxTokens)
	if options.MaxTokens > 0 {
		maxTokens = int64(options.MaxTokens)
	}

	msgs, system := convertMessages(parts)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		System:    system,
		Messages:  msgs,
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	first := stream.Next()
	if !first {
		if err := stream.Err(); err != nil {
			stream.Close()
			return nil, wrapError(err)
		}
	}

	ch := make(chan ai.StreamEvent)
	go func() {
		defer close(ch)
		defer stream.Close()

		send := func(event ai.StreamEvent) bool {
			select {
			case ch <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for ok := first; ok; ok = stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta().Delta.AsTextDelta()
			if delta.Type != "text_delta" || delta.Text == "" {
				continue
			}
			if !send(ai.StreamEvent{Delta: delta.Text}) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			send(ai.StreamEvent{Err: wrapError(err)})
			return
		}
		send(ai.StreamEvent{Done: true})
	}()

	return ch, nil
}

var _ ai.ChatProvider = (*Client)(nil)
