// Package client resolves provider names to chat backends.
//
// A Registry is created once per process and passed to the components that
// need it:
//
//	reg := client.New(client.Config{
//	    OpenAI:    client.ProviderConfig{APIKey: os.Getenv("OPENAI_API_KEY")},
//	    Anthropic: client.ProviderConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
//	})
//
//	provider, err := reg.Resolve("anthropic")
//	if jdcompare.IsConfiguration(err) {
//	    // unknown name or missing API key
//	}
//
// Adapters are constructed on first use and memoized, at most one per name.
// Every resolved provider retries label extraction and stream opening on
// transient errors (rate limits, 5xx, network failures) with exponential
// backoff. Once a stream has produced output it is never retried.
//
// # Events
//
// Observe calls via an event channel:
//
//	events := make(chan client.Event, 100)
//	reg := client.New(client.Config{Events: events})
package client
