package jdcompare

// Provider identifies a generation backend by its logical name.
type Provider string

// String returns the provider identifier.
func (p Provider) String() string { return string(p) }

// Supported providers.
const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// DefaultProvider is used when a request does not name one.
const DefaultProvider = ProviderOpenAI

// Providers lists every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGoogle}
}
