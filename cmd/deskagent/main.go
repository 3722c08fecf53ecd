// Package main provides the CLI entry point for the deskagent desktop
// automation service.
//
// Deskagent exposes a desktop to AI agents through a uniform tool
// interface: window control, input synthesis, screen capture,
// template matching, credential handling, and AI-backed perception and
// planning, served over HTTP and JSON-RPC.
//
// # Basic Usage
//
// Start the server:
//
//	deskagent serve --config deskagent.yaml
//
// List the tool catalog:
//
//	deskagent tools
//
// Run a single tool without the server:
//
//	deskagent invoke screenshot
//	deskagent invoke launch_app --params '{"target":"firefox"}'
//
// # Environment Variables
//
//   - DESKAGENT_CONFIG: Path to configuration file (default: deskagent.yaml)
//   - ANTHROPIC_API_KEY: API key for the perception/reasoning service
//   - DESKAGENT_FORCE_NOOP: Pin the noop desktop backend
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "deskagent",
		Short: "Deskagent - desktop automation for AI agents",
		Long: `Deskagent exposes a desktop to AI agents through a uniform tool interface.

Tools cover app launching, window management, input synthesis, screen
capture, template matching, credential handling, terminal commands,
notifications, multi-step skills, and AI-backed perception/planning.

Transport: HTTP JSON API, JSON-RPC 2.0, and server-sent events.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildToolsCmd(),
		buildInvokeCmd(),
	)

	return rootCmd
}

// resolveConfigPath applies the DESKAGENT_CONFIG fallback.
func resolveConfigPath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv("DESKAGENT_CONFIG"); env != "" {
		return env
	}
	return ""
}
