package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"agentgate/internal/agent"
	"agentgate/internal/banner"
	"agentgate/internal/cli"
	"agentgate/internal/config"
	"agentgate/internal/domain"
	"agentgate/internal/gateway"
	"agentgate/internal/llm"
)

// buildMeta holds version and build metadata (injectable via ldflags).
type buildMeta struct {
	Version string
	GoOS    string
	GoArch  string
}

func newBuildMeta(version, goos, goarch string) buildMeta {
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	return buildMeta{Version: version, GoOS: goos, GoArch: goarch}
}

func (m buildMeta) String() string {
	return fmt.Sprintf("agentgate %s %s/%s", m.Version, m.GoOS, m.GoArch)
}

func newRootCommand(bm buildMeta) *cobra.Command {
	root := &cobra.Command{
		Use:   "agentgate",
		Short: "Agent HTTP gateway",
		Long:  "Agentgate serves an LLM agent with informational tools over HTTP and WebSocket.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), bm.String())
				return nil
			}
			return runDaemon(cmd, args, daemonShutdownCh)
		},
	}
	root.Flags().BoolP("version", "V", false, "print version and build metadata")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check config, gateway, and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			fix, _ := cmd.Flags().GetBool("fix")
			checkArgs := []string{"agentgate", "check"}
			if fix {
				checkArgs = append(checkArgs, "--fix")
			}
			code := cli.RunCheck(checkArgs, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if code != 0 {
				return exitCodeErr(code)
			}
			return nil
		},
	}
	checkCmd.Flags().Bool("fix", false, "write default config if missing")
	root.AddCommand(checkCmd)

	return root
}

// newLogger builds the process logger from infra config.
func newLogger(infra domain.InfraConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(infra.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(infra.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// runDaemon runs the daemon loop. If shutdownCh is non-nil, it returns when shutdownCh is closed (for tests).
// Otherwise it blocks on OS signals.
func runDaemon(cmd *cobra.Command, args []string, shutdownCh <-chan struct{}) error {
	version := getVersion()
	banner.Startup(version, nil)

	cfgPath := os.Getenv("AGENTGATE_CONFIG")
	if cfgPath == "" {
		cfgPath = "agentgate.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Println("  (no config file, using defaults)")
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	logger := newLogger(cfg.Infra)

	// The key is resolved before anything binds: a missing credential is a
	// startup failure, never a half-alive server.
	var apiKey string
	if cfg.Agent.Provider == "" || cfg.Agent.Provider == "gemini" {
		apiKey, err = config.ResolveAPIKey()
		if err != nil {
			return fmt.Errorf("startup: %w", err)
		}
	}
	provider, err := llm.NewProvider(&cfg.Agent, apiKey, &cfg.Retry)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	rt, err := agent.NewRuntime(cfg, provider, logger)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	fmt.Printf("  agent %s  model=%s  tools=%d\n",
		rt.Identity.Name, rt.Identity.Model, len(rt.Identity.Tools))

	srv, err := gateway.NewServer(&cfg.Gateway, rt.Identity, rt.Dispatcher, rt.Brain)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	gatewayServerForTest = srv

	gatewayShutdown := make(chan struct{})
	go func() {
		_ = srv.Run(gatewayShutdown)
	}()
	// Wait until the server has bound so "ready." means clients can connect.
	var bound string
	for i := 0; i < daemonBindWaitIterations; i++ {
		if a := srv.Addr(); a != "" {
			bound = a
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if bound != "" {
		fmt.Printf("  listen %s\n  ready.\n", bound)
	} else {
		if err := srv.ListenErr(); err != nil {
			fmt.Fprintf(gatewayBindErrWriter, "  gateway failed to bind: %v\n", err)
		} else {
			fmt.Fprintln(gatewayBindErrWriter, "  gateway failed to bind (check port or permissions)")
		}
	}

	if shutdownCh != nil {
		<-shutdownCh
		close(gatewayShutdown)
		return nil
	}
	daemonWaitForShutdown()
	close(gatewayShutdown)
	return nil
}

func getVersion() string {
	if version != "" {
		return version
	}
	b, err := os.ReadFile("VERSION")
	if err != nil {
		return "dev"
	}
	return strings.TrimSpace(string(b))
}

// version is set at build time via ldflags for build metadata, e.g.:
//   go build -ldflags "-X main.version=0.2.0" -o agentgate ./cmd/agentgate
var version string

// daemonShutdownCh is set by tests to unblock runDaemon without signals. Production leaves it nil.
var daemonShutdownCh <-chan struct{}

// daemonWaitForShutdown is set by init in main_signal*.go so tests can inject a no-op to cover the nil-shutdownCh path.
var daemonWaitForShutdown func()

// gatewayServerForTest is set when the gateway server starts so tests can read Addr().
var gatewayServerForTest *gateway.Server

// daemonBindWaitIterations is the max loop count waiting for gateway to bind. Tests may set to 0 to skip wait and cover the bind-failure branch.
var daemonBindWaitIterations = 50

// gatewayBindErrWriter is where bind errors are written. Tests set this to capture output; production uses os.Stderr.
var gatewayBindErrWriter interface{ Write([]byte) (int, error) } = os.Stderr

// exitCodeErr carries an exit code for the process. When returned from a command, runApp exits with that code.
type exitCodeErr int

func (e exitCodeErr) Error() string { return fmt.Sprintf("exit %d", int(e)) }
func (e exitCodeErr) ExitCode() int { return int(e) }

// runApp runs the root command with the given args and returns the exit code (0 or 1).
func runApp(args []string) int {
	bm := newBuildMeta(version, "", "")
	if bm.Version == "" {
		bm.Version = getVersion()
	}
	root := newRootCommand(bm)
	root.SetArgs(args[1:])
	if err := root.Execute(); err != nil {
		if ec, ok := err.(interface{ ExitCode() int }); ok {
			return ec.ExitCode()
		}
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
