// Package jdcompare holds the shared vocabulary of the job-description
// comparison service: conversation turns, document cards, the
// provider-neutral prompt, and the [ChatProvider] capability every
// generation backend implements.
//
// A chat turn flows through four layers:
//
//   - [github.com/spetersoncode/jdcompare/prompt] renders document cards and
//     history into [PromptParts].
//   - [github.com/spetersoncode/jdcompare/client] resolves a provider name to
//     a cached [ChatProvider].
//   - [github.com/spetersoncode/jdcompare/relay] forwards the provider's
//     token stream to the caller and records the exchange.
//   - [github.com/spetersoncode/jdcompare/store] persists workspaces,
//     sessions and messages.
//
// # Streaming
//
// Providers stream through a channel of [StreamEvent]:
//
//	stream, err := provider.ChatStream(ctx, parts)
//	if err != nil {
//	    return err
//	}
//	for event := range stream {
//	    if event.Err != nil {
//	        return event.Err
//	    }
//	    fmt.Print(event.Delta)
//	}
//
// # Errors
//
// Backend failures are returned as [*Error] with an [ErrorCategory]; use
// [IsTransient] to decide whether to retry. Requests naming an unknown or
// unconfigured provider fail with a [*ConfigurationError].
package jdcompare
