package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"agentgate/internal/domain"
	"agentgate/internal/tooling"
)

// DefaultToolTimeout bounds a single tool call when no timeout is configured.
const DefaultToolTimeout = 10 * time.Second

// Dispatcher connects the agent runtime to the tool registry. It validates
// JSON arguments against each tool's schema before execution and normalizes
// every failure mode (unknown tool, invalid arguments, tool error, panic,
// timeout) into the error envelope, so the caller always receives exactly
// one well-formed ToolResult and the serving process never crashes on a
// misbehaving tool.
type Dispatcher struct {
	registry *tooling.Registry
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher backed by the given registry.
// timeout <= 0 selects DefaultToolTimeout. Panics if registry is nil.
func NewDispatcher(registry *tooling.Registry, timeout time.Duration) *Dispatcher {
	if registry == nil {
		panic("dispatcher: registry must not be nil")
	}
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &Dispatcher{registry: registry, timeout: timeout}
}

// SetLogger sets a structured logger. A nil logger falls back to slog.Default.
func (d *Dispatcher) SetLogger(l *slog.Logger) { d.logger = l }

func (d *Dispatcher) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}

// Definitions returns the tool definitions for the LLM function-calling prompt.
func (d *Dispatcher) Definitions() []domain.ToolDefinition {
	return d.registry.Definitions()
}

// HandleToolCall looks up the tool by name, validates the raw JSON arguments
// against the tool's JSON Schema, and executes it under a bounded timeout.
// The returned result always has Status "success" or "error"; no fault
// propagates past this boundary.
func (d *Dispatcher) HandleToolCall(ctx context.Context, name string, args []byte) *domain.ToolResult {
	tool, err := d.registry.Get(name)
	if err != nil {
		return domain.Failure(fmt.Sprintf("unknown tool %q", name))
	}

	if len(args) == 0 {
		args = []byte(`{}`)
	}
	if err := tooling.ValidateAgainstSchema(args, tool.Definition()); err != nil {
		return domain.Failure(fmt.Sprintf("invalid arguments for tool %q: %v", name, err))
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	result := d.callGuarded(callCtx, tool, args)

	// Enforce the envelope: a tool may only report success or error.
	if result == nil {
		return domain.Failure(fmt.Sprintf("tool %q returned no result", name))
	}
	if result.Status != domain.StatusSuccess && result.Status != domain.StatusError {
		return domain.Failure(fmt.Sprintf("tool %q returned malformed status %q", name, result.Status))
	}
	return result
}

// callGuarded runs the tool call on its own goroutine so a tool that ignores
// its context cannot stall the caller past the timeout, and converts panics
// and error returns into the error envelope.
func (d *Dispatcher) callGuarded(ctx context.Context, tool tooling.Tool, args json.RawMessage) *domain.ToolResult {
	type outcome struct {
		result *domain.ToolResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log().Error("tool panicked", "tool", tool.Name(), "panic", r)
				done <- outcome{err: fmt.Errorf("tool %q panicked: %v", tool.Name(), r)}
			}
		}()
		res, err := tool.Call(ctx, args)
		done <- outcome{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return domain.Failure(fmt.Sprintf("tool %q did not complete in time: %v", tool.Name(), ctx.Err()))
	case out := <-done:
		if out.err != nil {
			return domain.Failure(fmt.Sprintf("tool %q failed: %v", tool.Name(), out.err))
		}
		return out.result
	}
}

var _ domain.ToolInvoker = (*Dispatcher)(nil)
