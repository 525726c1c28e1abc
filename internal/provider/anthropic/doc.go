// Package anthropic provides a Claude client implementing [jdcompare.ChatProvider].
//
// Claude places two constraints on the prompt that the other backends do not:
//
//   - Conversation turns must strictly alternate between user and assistant.
//     History supplied by callers may not, so [EnsureAlternating] merges
//     consecutive same-role turns before every request.
//   - Prompt caching is opt-in per content block. Requests carry up to three
//     breakpoints: the instructions, the document block, and the last history
//     turn. The newest user message is never cached.
//
// # Basic Usage
//
//	client := anthropic.New(os.Getenv("ANTHROPIC_API_KEY"),
//	    anthropic.WithModel("claude-sonnet-4-20250514"),
//	)
//
//	stream, err := client.ChatStream(ctx, parts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for event := range stream {
//	    if event.Err != nil {
//	        log.Fatal(event.Err)
//	    }
//	    fmt.Print(event.Delta)
//	}
package anthropic
