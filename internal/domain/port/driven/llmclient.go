package driven

import "context"

// LLMClient defines the driven port for the chat-completion endpoint. A
// client is scoped to one decrypted API key and base URL.
type LLMClient interface {
	// GenerateCode runs the code-generation chat exchange and returns the
	// first completion's text, or "" when the provider returns no choices.
	// contextSnippet, when non-empty, is embedded ahead of the prompt.
	GenerateCode(ctx context.Context, llmModel, prompt, contextSnippet string) (string, error)

	// Ping performs a minimal one-token round-trip against the endpoint.
	Ping(ctx context.Context, llmModel string) error
}

// LLMClientFactory builds a client from a decrypted API key and base URL.
type LLMClientFactory func(apiKey, baseURL string) LLMClient
