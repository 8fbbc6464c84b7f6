package tooling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agentgate/internal/domain"
)

// timeFormat is the timestamp layout reported to the agent (YYYY-MM-DD HH:MM:SS).
const timeFormat = "2006-01-02 15:04:05"

// nowFunc returns the current time; tests may replace it for deterministic output.
var nowFunc = time.Now

// TimeTool reports the current wall-clock time. Zero-argument.
type TimeTool struct{}

// NewTimeTool returns the time-reporting tool.
func NewTimeTool() *TimeTool { return &TimeTool{} }

// Name returns the tool name used in function-calling.
func (t *TimeTool) Name() string { return "get_current_time" }

// Description returns a human-readable description for the LLM.
func (t *TimeTool) Description() string { return "Get the current time." }

// Definition returns the JSON Schema for the (empty) input.
func (t *TimeTool) Definition() string {
	return GenerateSchema(EmptyInput{})
}

// Call returns a success envelope with the formatted current time.
func (t *TimeTool) Call(ctx context.Context, args json.RawMessage) (*domain.ToolResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	now := nowFunc()
	return domain.Success(fmt.Sprintf("The current time is %s", now.Format(timeFormat))), nil
}

var _ Tool = (*TimeTool)(nil)
