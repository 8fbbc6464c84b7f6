package llm

import (
	"context"

	"agentgate/internal/domain"
)

// LocalProvider answers every prompt by echoing it back, optionally behind a
// prefix. It exists so the gateway can run end to end without credentials.
type LocalProvider struct {
	Prefix string // prepended to the prompt in the response
}

// NewLocalProvider returns a local provider that echoes the prompt with an optional prefix.
func NewLocalProvider(prefix string) *LocalProvider {
	return &LocalProvider{Prefix: prefix}
}

// Generate implements domain.LLMProvider.
func (p *LocalProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.Prefix + prompt, nil
}

var _ domain.LLMProvider = (*LocalProvider)(nil)
