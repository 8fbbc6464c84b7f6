package tooling

import (
	"context"
	"encoding/json"

	"agentgate/internal/domain"
)

// Tool is a named capability exposed to the agent. Implementations are
// immutable once registered; registration happens once during single-threaded
// startup and lives for the process lifetime.
type Tool interface {
	// Name returns the unique tool name used in function-calling
	// (e.g. "get_current_time").
	Name() string
	// Description returns a human-readable description for the LLM.
	Description() string
	// Definition returns the JSON Schema string for the tool's input struct.
	Definition() string
	// Call executes the tool with the given JSON arguments. Implementations
	// return either a success envelope or an error; the dispatcher normalizes
	// errors (and panics) into the error envelope before they reach the agent.
	Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error)
}

// ToolDefinition and ToolResult are re-exported for convenience.
type ToolDefinition = domain.ToolDefinition
type ToolResult = domain.ToolResult
