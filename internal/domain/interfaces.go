package domain

import "context"

// LLMProvider is the model-agnostic interface for text generation.
// Implementations may be Gemini, a local stub, or mocks in tests.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Tokenizer counts tokens in a string for LLM context window management.
type Tokenizer interface {
	// CountTokens returns the number of tokens in the given text.
	CountTokens(text string) (int, error)
}

// ContextManager fits messages into a model's context window.
type ContextManager interface {
	// FitToWindow takes messages and a system prompt, and returns messages
	// that fit within the configured token limit. The system prompt tokens
	// are always reserved. Older messages are dropped first (sliding window).
	FitToWindow(messages []Message, systemPrompt string) ([]Message, error)
}

// ToolInvoker dispatches a named tool call and always produces a well-formed
// ToolResult envelope, regardless of how the underlying tool fails.
type ToolInvoker interface {
	HandleToolCall(ctx context.Context, name string, args []byte) *ToolResult
}
