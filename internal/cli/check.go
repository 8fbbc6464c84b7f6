package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"agentgate/internal/config"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Fix bool // if true, write default config when missing
}

// RunCheck runs the check subcommand: checks config, gateway and the API key;
// optionally repairs. Returns exit code.
func RunCheck(args []string, stdout, stderr io.Writer) int {
	opts := parseCheckOptions(args)
	cfgPath := "agentgate.json"
	if p := os.Getenv("AGENTGATE_CONFIG"); p != "" {
		cfgPath = p
	}

	note := func(section, message string) {
		fmt.Fprintf(stdout, "  [%s] %s\n", section, message)
	}

	// 1. Config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			note("Config", fmt.Sprintf("No config at %s.", cfgPath))
			if opts.Fix {
				if writeErr := config.WriteDefault(cfgPath); writeErr != nil {
					fmt.Fprintf(stderr, "  failed to write default config: %v\n", writeErr)
					return 1
				}
				note("Config", fmt.Sprintf("Wrote default config to %s.", cfgPath))
			} else {
				note("Config", "Run with --fix to create a default agentgate.json.")
			}
		} else {
			note("Config", err.Error())
			return 1
		}
	} else {
		note("Config", fmt.Sprintf("Loaded %s.", cfgPath))
		if err := config.Validate(cfg); err != nil {
			note("Config", err.Error())
			return 1
		}

		// 2. Gateway
		auth := "off"
		if cfg.Gateway.Auth.AuthToken != "" {
			auth = "bearer"
		}
		note("Gateway", fmt.Sprintf("port=%d auth=%s", cfg.Gateway.Port, auth))
		if auth == "off" {
			note("Gateway", "Auth is disabled. Consider setting gateway.auth.authToken for production.")
		}

		// 3. Credentials
		if cfg.Agent.Provider == "gemini" {
			if _, err := config.ResolveAPIKey(); err != nil {
				note("Credentials", err.Error())
				return 1
			}
			note("Credentials", config.APIKeyEnvVar+" is set.")
		}
	}

	fmt.Fprintln(stdout, "  Check complete.")
	return 0
}

func parseCheckOptions(args []string) CheckOptions {
	var opts CheckOptions
	for _, a := range args {
		if a == "--fix" || a == "-fix" {
			opts.Fix = true
			break
		}
	}
	return opts
}
