package agent

import (
	"fmt"
	"log/slog"
	"time"

	"agentgate/internal/brain"
	appcontext "agentgate/internal/context"
	"agentgate/internal/domain"
	"agentgate/internal/tokenizer"
	"agentgate/internal/tooling"
)

// Runtime wires the registry, dispatcher and brain into a servable agent.
type Runtime struct {
	Identity   *domain.AgentIdentity
	Registry   *tooling.Registry
	Dispatcher *brain.Dispatcher
	Brain      *brain.Brain
}

// NewRuntime assembles the agent from config and an LLM provider. The
// tokenizer-backed context manager keeps conversations inside the model
// window; when the tokenizer cannot be initialized the brain runs without
// trimming and the problem is logged, not fatal.
func NewRuntime(cfg *domain.Config, provider domain.LLMProvider, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("agent: nil config")
	}
	if provider == nil {
		return nil, fmt.Errorf("agent: nil provider")
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg, err := NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("agent: building registry: %w", err)
	}

	timeout := time.Duration(cfg.Agent.ToolTimeoutMS) * time.Millisecond
	dispatcher := brain.NewDispatcher(reg, timeout)
	dispatcher.SetLogger(logger)

	opts := []brain.Option{
		brain.WithLogger(logger),
		brain.WithTools(dispatcher, dispatcher.Definitions()),
	}
	if cfg.Agent.MaxContextTokens > 0 {
		tk, err := tokenizer.NewTikToken(tokenizer.DefaultEncoding)
		if err != nil {
			logger.Warn("tokenizer unavailable, context trimming disabled", "error", err)
		} else {
			opts = append(opts, brain.WithContextManager(
				appcontext.NewManager(tk, cfg.Agent.MaxContextTokens)))
		}
	}

	return &Runtime{
		Identity:   NewIdentity(cfg.Agent.Model, reg),
		Registry:   reg,
		Dispatcher: dispatcher,
		Brain:      brain.NewBrain(provider, opts...),
	}, nil
}
