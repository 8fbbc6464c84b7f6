package tooling

import (
	"encoding/json"
	"errors"
	"fmt"

	"agentgate/internal/domain"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
// ErrToolNotFound is returned when looking up an unregistered name.
// Both indicate a programming error, not a runtime condition to recover from.
var (
	ErrDuplicateTool = errors.New("tool already registered")
	ErrToolNotFound  = errors.New("tool not found")
)

// Registry holds the fixed set of callable tools in registration order. The
// agent runtime uses it to build the tool-selection prompt; the gateway uses
// it to answer the capabilities endpoint. Registration occurs once during
// single-threaded startup, before the server accepts any request, so no
// locking is needed.
type Registry struct {
	byName map[string]Tool
	order  []Tool
}

// NewRegistry returns an empty, ready-to-use registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Tool)}
}

// Register adds a tool. Returns an error if the tool is nil and
// ErrDuplicateTool if a tool with the same name already exists; the first
// registration is retained.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool must not be nil")
	}
	name := tool.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTool, name)
	}
	r.byName[name] = tool
	r.order = append(r.order, tool)
	return nil
}

// Get returns the tool with the given name or ErrToolNotFound.
func (r *Registry) Get(name string) (Tool, error) {
	tool, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return tool, nil
}

// List returns all registered tools in registration order. The returned slice
// is a copy; callers may range over it repeatedly or mutate it freely.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.order))
	copy(out, r.order)
	return out
}

// Names returns the tool names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, t.Name())
	}
	return out
}

// Definitions returns domain.ToolDefinition for every registered tool, in
// registration order, suitable for passing to the LLM function-calling prompt.
func (r *Registry) Definitions() []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, domain.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: json.RawMessage(t.Definition()),
		})
	}
	return out
}
