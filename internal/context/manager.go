package context

import (
	"fmt"

	"agentgate/internal/domain"
)

// Manager implements domain.ContextManager with a sliding window: the system
// prompt is always kept, and history is trimmed oldest-first until the
// remainder fits the token limit.
type Manager struct {
	tokenizer domain.Tokenizer
	maxTokens int
}

// NewManager creates a Manager with the given tokenizer and max token limit.
// Panics if tokenizer is nil or maxTokens <= 0.
func NewManager(tokenizer domain.Tokenizer, maxTokens int) *Manager {
	if tokenizer == nil {
		panic("context: tokenizer must not be nil")
	}
	if maxTokens <= 0 {
		panic("context: maxTokens must be > 0")
	}
	return &Manager{tokenizer: tokenizer, maxTokens: maxTokens}
}

// FitToWindow returns the longest suffix of messages that, together with the
// system prompt, stays within the token limit. Order is preserved.
//
// Returns an error if the system prompt alone exceeds the limit or if the
// tokenizer fails.
func (m *Manager) FitToWindow(messages []domain.Message, systemPrompt string) ([]domain.Message, error) {
	if len(messages) == 0 {
		return []domain.Message{}, nil
	}

	remaining := m.maxTokens
	if systemPrompt != "" {
		sysTokens, err := m.tokenizer.CountTokens(systemPrompt)
		if err != nil {
			return nil, fmt.Errorf("context: counting system prompt tokens: %w", err)
		}
		if sysTokens > m.maxTokens {
			return nil, fmt.Errorf("context: system prompt (%d tokens) exceeds limit (%d tokens)", sysTokens, m.maxTokens)
		}
		remaining -= sysTokens
	}

	// Newest messages win: scan backwards and stop at the first one that
	// does not fit.
	keepFrom := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		count, err := m.tokenizer.CountTokens(messages[i].Content)
		if err != nil {
			return nil, fmt.Errorf("context: counting tokens for message %d: %w", i, err)
		}
		if count > remaining {
			break
		}
		remaining -= count
		keepFrom = i
	}

	return messages[keepFrom:], nil
}

var _ domain.ContextManager = (*Manager)(nil)
