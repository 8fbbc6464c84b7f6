package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"agentgate/internal/domain"
)

// Option is a functional option for configuring Brain.
type Option func(*Brain)

// WithContextManager sets the context manager for sliding-window context
// fitting. If cm is nil it is ignored (all messages are sent untruncated).
func WithContextManager(cm domain.ContextManager) Option {
	return func(b *Brain) {
		if cm != nil {
			b.contextMgr = cm
		}
	}
}

// WithLogger sets a structured logger for the Brain. If l is nil it is ignored
// and the default slog logger is used.
func WithLogger(l *slog.Logger) Option {
	return func(b *Brain) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithFallbacks adds fallback LLM providers that are tried in order if the
// primary provider fails. Nil entries are silently skipped.
func WithFallbacks(providers ...domain.LLMProvider) Option {
	return func(b *Brain) {
		for _, p := range providers {
			if p != nil {
				b.fallbacks = append(b.fallbacks, p)
			}
		}
	}
}

// WithTools wires a tool invoker and the definitions advertised to the model.
// Both must be non-nil for tool dispatch to activate.
func WithTools(invoker domain.ToolInvoker, defs []domain.ToolDefinition) Option {
	return func(b *Brain) {
		if invoker != nil && len(defs) > 0 {
			b.invoker = invoker
			b.toolDefs = defs
		}
	}
}

// Brain holds an LLM provider and exposes Generate/Respond to the gateway.
// Callers are unaware of the underlying implementation (Gemini, local, mock).
type Brain struct {
	provider   domain.LLMProvider
	fallbacks  []domain.LLMProvider  // optional; tried in order when provider fails
	contextMgr domain.ContextManager // optional; nil means no context window management
	invoker    domain.ToolInvoker    // optional; nil means no tool dispatch
	toolDefs   []domain.ToolDefinition
	logger     *slog.Logger // optional; nil uses slog.Default()
}

// NewBrain returns a Brain that uses the given provider. Provider must not be nil.
// Options (e.g. WithTools, WithContextManager) configure optional features.
func NewBrain(provider domain.LLMProvider, opts ...Option) *Brain {
	if provider == nil {
		panic("brain: provider must not be nil")
	}
	b := &Brain{provider: provider}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// log returns the Brain's logger, falling back to the default slog logger.
func (b *Brain) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

// Generate calls the underlying LLM provider with the given prompt and returns
// the response. When fallbacks are configured, they are tried in order if the
// primary provider fails.
func (b *Brain) Generate(ctx context.Context, prompt string) (string, error) {
	return b.generateWithFailover(ctx, prompt)
}

// generateWithFailover tries the primary provider, then each fallback in order.
// Returns the first successful response, or an aggregated error if all fail.
func (b *Brain) generateWithFailover(ctx context.Context, prompt string) (string, error) {
	result, err := b.provider.Generate(ctx, prompt)
	if err == nil {
		return result, nil
	}

	if len(b.fallbacks) == 0 {
		return "", err
	}

	errs := []error{err}

	for i, fb := range b.fallbacks {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		b.log().Warn("provider failed, trying fallback",
			"provider_index", i,
			"error", err,
		)

		result, fbErr := fb.Generate(ctx, prompt)
		if fbErr == nil {
			return result, nil
		}
		errs = append(errs, fbErr)
		err = fbErr
	}

	return "", fmt.Errorf("brain: all %d providers failed: %w", len(errs), errors.Join(errs...))
}

// GenerateWithContext takes a message history and system prompt, applies
// sliding-window context fitting (if a ContextManager is configured), then
// sends the result to the LLM provider.
func (b *Brain) GenerateWithContext(ctx context.Context, messages []domain.Message, systemPrompt string) (string, error) {
	fittedMessages := messages
	if b.contextMgr != nil && len(messages) > 0 {
		fitted, err := b.contextMgr.FitToWindow(messages, systemPrompt)
		if err != nil {
			return "", fmt.Errorf("brain: context fitting failed: %w", err)
		}
		fittedMessages = fitted
	}

	prompt := buildPrompt(systemPrompt, fittedMessages)
	return b.generateWithFailover(ctx, prompt)
}

// Respond answers a chat turn, running at most one tool round. The system
// prompt is extended with the advertised tool definitions; when the model
// replies with a tool directive ({"tool": ..., "args": ...}), the call is
// dispatched and its ToolResult envelope is fed back for a final answer.
// Without a configured invoker this is GenerateWithContext.
func (b *Brain) Respond(ctx context.Context, messages []domain.Message, systemPrompt string) (string, error) {
	if b.invoker == nil {
		return b.GenerateWithContext(ctx, messages, systemPrompt)
	}

	system := systemPrompt + "\n\n" + b.toolInstructions()
	reply, err := b.GenerateWithContext(ctx, messages, system)
	if err != nil {
		return "", err
	}

	name, args, ok := parseToolDirective(reply)
	if !ok {
		return reply, nil
	}

	b.log().Info("dispatching tool call", "tool", name)
	result := b.invoker.HandleToolCall(ctx, name, args)
	if !result.OK() {
		b.log().Warn("tool call failed", "tool", name, "message", result.Message)
	}

	envelope, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("brain: encoding tool result: %w", err)
	}
	followUp := append(append([]domain.Message{}, messages...), domain.Message{
		Role:    domain.RoleTool,
		Content: fmt.Sprintf("Result of tool %q:\n%s", name, envelope),
	})
	return b.GenerateWithContext(ctx, followUp, system)
}

// toolInstructions renders the tool definitions and the directive protocol
// into a system prompt fragment.
func (b *Brain) toolInstructions() string {
	defs, err := json.MarshalIndent(b.toolDefs, "", "  ")
	if err != nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[Tools]\n")
	sb.Write(defs)
	sb.WriteString("\n[End Tools]\n\n")
	sb.WriteString(`To call a tool, reply with only a JSON object of the form {"tool": "<name>", "args": {}} and nothing else. Otherwise answer the user directly.`)
	return sb.String()
}

// parseToolDirective reports whether reply is a tool directive and, if so,
// returns the tool name and raw arguments. Code fences around the JSON are
// tolerated since models add them routinely.
func parseToolDirective(reply string) (string, []byte, bool) {
	trimmed := strings.TrimSpace(reply)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if !strings.HasPrefix(trimmed, "{") {
		return "", nil, false
	}
	var directive struct {
		Tool string          `json:"tool"`
		Args json.RawMessage `json:"args"`
	}
	if err := json.Unmarshal([]byte(trimmed), &directive); err != nil {
		return "", nil, false
	}
	if directive.Tool == "" {
		return "", nil, false
	}
	args := []byte(directive.Args)
	if len(args) == 0 {
		args = []byte(`{}`)
	}
	return directive.Tool, args, true
}

// buildPrompt assembles the final prompt from system prompt and message history.
func buildPrompt(systemPrompt string, messages []domain.Message) string {
	var sb strings.Builder

	if systemPrompt != "" {
		sb.WriteString("[System]\n")
		sb.WriteString(systemPrompt)
		sb.WriteString("\n[End System]\n\n")
	}

	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("[%s]\n", msg.Role))
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}
