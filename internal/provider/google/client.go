// Package google provides a Gemini client implementing [jdcompare.ChatProvider]
// through the Google GenAI SDK.
package google

import (
	"context"
	"iter"
	"net/http"

	ai "github.com/spetersoncode/jdcompare"
	"google.golang.org/genai"
)

const (
	// DefaultChatModel is used for chat streams when no model is configured.
	DefaultChatModel = "gemini-2.5-flash"
	// DefaultLabelModel is used for label extraction when no model is configured.
	DefaultLabelModel = "gemini-2.5-flash-lite"

	chatMaxTokens  = 4096
	labelMaxTokens = 100
)

// Client wraps the Google GenAI SDK to implement ai.ChatProvider.
type Client struct {
	client     *genai.Client
	model      string
	labelModel string
}

type config struct {
	model      string
	labelModel string
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures the Google client.
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
		c.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New creates a new Gemini API client with the given API key.
func New(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	cfg := config{model: DefaultChatModel, labelModel: DefaultLabelModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		client:     client,
		model:      cfg.model,
		labelModel: cfg.labelModel,
	}, nil
}

// Model returns the configured chat model.
func (c *Client) Model() string { return c.model }

// ChatStream sends the prompt and returns a channel of streaming events.
// The first response chunk is read before returning, so failures to open
// the stream are reported as an error.
func (c *Client) ChatStream(ctx context.Context, parts ai.PromptParts, opts ...ai.Option) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(opts...)
	model := c.model
	if options.Model != "" {
		model = options.Model
	}
	maxTokens := int32(chatMaxTokens)
	if options.MaxTokens > 0 {
		maxTokens = int32(options.MaxTokens)
	}

	contents, system := convertMessages(parts)
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		MaxOutputTokens:   maxTokens,
	}

	next, stop := iter.Pull2(c.client.Models.GenerateContentStream(ctx, model, contents, config))
	first, err, ok := next()
	if ok && err != nil {
		stop()
		return nil, wrapError(err)
	}

	ch := make(chan ai.StreamEvent)
	go func() {
		defer close(ch)
		defer stop()

		send := func(event ai.StreamEvent) bool {
			select {
			case ch <- event:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for resp := first; ok; resp, err, ok = next() {
			if err != nil {
				send(ai.StreamEvent{Err: wrapError(err)})
				return
			}
			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				send(ai.StreamEvent{Err: &BlockedError{Reason: string(resp.PromptFeedback.BlockReason)}})
				return
			}
			for _, text := range textParts(resp) {
				if !send(ai.StreamEvent{Delta: text}) {
					return
				}
			}
		}
		if ctx.Err() != nil {
			return
		}
		send(ai.StreamEvent{Done: true})
	}()

	return ch, nil
}

// textParts returns the non-empty, non-thought text parts of the first candidate.
func textParts(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		out = append(out, part.Text)
	}
	return out
}

var _ ai.ChatProvider = (*Client)(nil)
