package ai

import "context"

// Runtime is implemented by every model backend: OpenRouter, a local
// Ollama, and the offline mock.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
	ProviderMock       = "mock"
)

// providerAliases maps vendor names and shorthands onto a registered runtime.
// Vendor-hosted models are all reached through OpenRouter.
var providerAliases = map[string]string{
	"openai":    ProviderOpenRouter,
	"anthropic": ProviderOpenRouter,
	"google":    ProviderOpenRouter,
	"gemini":    ProviderOpenRouter,
	"meta":      ProviderOpenRouter,
	"llama":     ProviderOpenRouter,
	"local":     ProviderOllama,
	"offline":   ProviderMock,
}

// StreamRuntime is an optional extension that supports streaming output.
// Implementors should invoke onDelta with each partial content chunk.
type StreamRuntime interface {
	GenerateStream(ctx context.Context, req GenerateRequest, onDelta func(string)) error
}
