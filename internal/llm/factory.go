package llm

import (
	"fmt"
	"time"

	"agentgate/internal/domain"
	"agentgate/internal/retry"
)

// NewProvider returns an LLMProvider for the given agent config, optionally wrapped with retry logic.
// Provider may be "gemini" or "local"; empty provider defaults to "gemini".
// apiKey is required for gemini and ignored for local.
// retryCfg, if non-nil, wraps the provider with exponential-backoff retry on transient errors.
func NewProvider(agent *domain.AgentConfig, apiKey string, retryCfg ...*domain.RetryConfig) (domain.LLMProvider, error) {
	base, err := newBaseProvider(agent, apiKey)
	if err != nil {
		return nil, err
	}
	return wrapWithRetry(base, retryCfg...), nil
}

func newBaseProvider(agent *domain.AgentConfig, apiKey string) (domain.LLMProvider, error) {
	if agent == nil {
		return NewLocalProvider("Local: "), nil
	}
	provider := agent.Provider
	if provider == "" {
		provider = "gemini"
	}
	switch provider {
	case "local":
		return NewLocalProvider("Local: "), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider: API key not set (export %s)", "GEMINI_API_KEY")
		}
		return NewGeminiProvider(apiKey, agent.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q (use: gemini, local)", provider)
	}
}

// wrapWithRetry decorates a provider with retry logic when config is supplied.
func wrapWithRetry(provider domain.LLMProvider, retryCfg ...*domain.RetryConfig) domain.LLMProvider {
	if len(retryCfg) == 0 || retryCfg[0] == nil || retryCfg[0].MaxRetries <= 0 {
		return provider
	}
	rc := retryCfg[0]
	cfg := retry.Config{
		MaxRetries:     rc.MaxRetries,
		InitialBackoff: time.Duration(rc.InitialBackoff) * time.Millisecond,
		MaxBackoff:     time.Duration(rc.MaxBackoff) * time.Millisecond,
		Multiplier:     float64(rc.Multiplier),
	}
	return retry.NewRetryableProvider(provider, cfg)
}
