package domain

import (
	"encoding/json"
	"time"
)

// =============================================================================
// Core Configuration
// =============================================================================

type Config struct {
	Gateway GatewayConfig `json:"gateway"`
	Agent   AgentConfig   `json:"agent"`
	Infra   InfraConfig   `json:"infra"`
	Retry   RetryConfig   `json:"retry"`
}

type GatewayConfig struct {
	Port int        `json:"port"`
	Auth AuthConfig `json:"auth"`
}

type AuthConfig struct {
	// AuthToken, when set, requires Authorization: Bearer <authToken> on every route.
	AuthToken string `json:"authToken,omitempty"`
}

type AgentConfig struct {
	Provider         string `json:"provider"` // "gemini" | "local"
	Model            string `json:"model"`
	MaxContextTokens int    `json:"maxContextTokens"` // 0 disables context window management
	ToolTimeoutMS    int    `json:"toolTimeoutMs"`    // per-tool-call timeout; 0 uses the default
}

type InfraConfig struct {
	LogFormat string `json:"logFormat"` // "json" | "text"
	LogLevel  string `json:"logLevel"`
}

// RetryConfig controls retry behaviour for LLM API calls.
type RetryConfig struct {
	MaxRetries     int `json:"maxRetries"`     // Maximum retry attempts (0 = no retries)
	InitialBackoff int `json:"initialBackoff"` // Initial backoff in milliseconds
	MaxBackoff     int `json:"maxBackoff"`     // Maximum backoff in milliseconds
	Multiplier     int `json:"multiplier"`     // Backoff multiplier (e.g. 2 for exponential doubling)
}

// =============================================================================
// Agent Identity
// =============================================================================

// AgentIdentity describes the single agent this gateway hosts. It is built
// once at startup and never mutated; the gateway reads it to answer
// introspection queries (/agent-info).
type AgentIdentity struct {
	Name        string   `json:"agent_name"`
	Description string   `json:"description"`
	Model       string   `json:"model"`
	Instruction string   `json:"-"`
	Tools       []string `json:"tools"` // tool names in registration order
}

// =============================================================================
// Messaging
// =============================================================================

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Message is a single chat turn held in per-connection history.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// =============================================================================
// Tooling
// =============================================================================

// ToolStatus tags a ToolResult. The only valid values are StatusSuccess and
// StatusError; every tool call produces exactly one of the two.
type ToolStatus string

const (
	StatusSuccess ToolStatus = "success"
	StatusError   ToolStatus = "error"
)

// ToolResult is the uniform envelope returned by every tool invocation.
// On success Report carries the payload; on error Message carries a
// human-readable description the agent can relay conversationally.
type ToolResult struct {
	Status  ToolStatus `json:"status"`
	Report  string     `json:"report,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Success builds a success envelope with the given report.
func Success(report string) *ToolResult {
	return &ToolResult{Status: StatusSuccess, Report: report}
}

// Failure builds an error envelope with the given message.
func Failure(message string) *ToolResult {
	return &ToolResult{Status: StatusError, Message: message}
}

// OK reports whether the result carries a success status.
func (r *ToolResult) OK() bool { return r.Status == StatusSuccess }

// ToolDefinition is the function-calling surface for one tool, serialised
// into the LLM prompt and returned by the /tools diagnostic endpoint.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}
