package openai

import (
	"context"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	ai "github.com/spetersoncode/jdcompare"
)

const (
	// DefaultChatModel is used for chat streams when no model is configured.
	DefaultChatModel = "gpt-4o"
	// DefaultLabelModel is used for label extraction when no model is configured.
	DefaultLabelModel = "gpt-4o-mini"

	chatMaxTokens  = 4096
	labelMaxTokens = 100
)

// Client wraps the OpenAI SDK to implement ai.ChatProvider. The whole prompt
// context travels in a single system message.
type Client struct {
	client     *openai.Client
	model      string
	labelModel string
}

type config struct {
	model      string
	labelModel string
	reqOpts    []option.RequestOption
}

// ClientOption configures the OpenAI client.
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

// WithBaseURL points the client at an OpenAI-compatible endpoint.
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

// New creates a new OpenAI client with the given API key. SDK-level retries
// are disabled; callers retry through the registry.
func New(apiKey string, opts ...ClientOption) *Client {
	cfg := config{model: DefaultChatModel, labelModel: DefaultLabelModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, cfg.reqOpts...)
	client := openai.NewClient(reqOpts...)

	return &Client{
		client:     &client,
		model:      cfg.model,
		labelModel: cfg.labelModel,
	}
}

// Model returns the configured chat model.
func (c *Client) Model() string { return c.model }

// ChatStream sends the prompt and returns a channel of streaming events.
// The first chunk is read before returning, so failures to open the stream
// are reported as an error rather than as an event.
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

	params := openai.ChatCompletionNewParams{
		Model:     model,
		Messages:  convertMessages(parts),
		MaxTokens: openai.Int(maxTokens),
	}

	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
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
			chunk := stream.Current()
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
				if !send(ai.StreamEvent{Delta: chunk.Choices[0].Delta.Content}) {
					return
				}
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
