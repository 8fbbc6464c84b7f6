package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"agentgate/internal/domain"
)

// APIKeyEnvVar is the environment variable holding the Gemini API key.
const APIKeyEnvVar = "GEMINI_API_KEY"

// ErrMissingAPIKey is returned when the required API key environment variable
// is absent or empty. This is fatal at startup: the process must not open a
// listening socket without a credential.
var ErrMissingAPIKey = fmt.Errorf("%s is required", APIKeyEnvVar)

// marshalIndent and writeFile are used by WriteDefault; tests may replace to force errors.
var (
	marshalIndent = json.MarshalIndent
	writeFile     = os.WriteFile
)

// Default returns the built-in default configuration.
func Default() *domain.Config {
	return &domain.Config{
		Gateway: domain.GatewayConfig{
			Port: 4000,
			Auth: domain.AuthConfig{},
		},
		Agent: domain.AgentConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			MaxContextTokens: 8192,
			ToolTimeoutMS:    10000,
		},
		Infra: domain.InfraConfig{LogFormat: "text", LogLevel: "info"},
		Retry: domain.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 500,
			MaxBackoff:     30000,
			Multiplier:     2,
		},
	}
}

// WriteDefault writes the default Config to path (e.g. agentgate.json). Parent
// directories are not created.
func WriteDefault(path string) error {
	data, err := marshalIndent(Default(), "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data, 0644)
}

// Load reads path (e.g. agentgate.json) and unmarshals into domain.Config.
// Returns an error if the file is missing or contains invalid JSON.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	var c domain.Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	return &c, nil
}

// ResolveAPIKey reads the required API key from the environment. A missing or
// whitespace-only value yields ErrMissingAPIKey. The "local" provider does not
// need a key; callers skip this for it.
func ResolveAPIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(APIKeyEnvVar))
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// Validate checks config fields that would otherwise fail deep inside startup.
func Validate(cfg *domain.Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		return fmt.Errorf("config: gateway port %d out of range", cfg.Gateway.Port)
	}
	if cfg.Agent.MaxContextTokens < 0 {
		return fmt.Errorf("config: maxContextTokens must be >= 0")
	}
	if cfg.Agent.ToolTimeoutMS < 0 {
		return fmt.Errorf("config: toolTimeoutMs must be >= 0")
	}
	return nil
}
