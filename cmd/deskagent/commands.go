package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/deskagent/internal/config"
	"github.com/haasonsaas/deskagent/internal/tools"
)

// buildServeCmd creates the "serve" command.
func buildServeCmd() *cobra.Command {
	var configPath string
	var port int
	var noopBackend bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the desktop agent server",
		Long: `Start the HTTP server exposing the tool pipeline.

The desktop backend is selected automatically: a real X11 desktop when a
display and the helper binaries (xdotool, wmctrl) are present, otherwise
a no-op backend that accepts every action without touching anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(resolveConfigPath(configPath))
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if noopBackend {
				cfg.Desktop.Backend = "noop"
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the listen port")
	cmd.Flags().BoolVar(&noopBackend, "noop", false, "Use the no-op desktop backend")
	return cmd
}

// buildToolsCmd creates the "tools" command.
func buildToolsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := tools.Catalog()
			if asJSON {
				return json.NewEncoder(os.Stdout).Encode(catalog)
			}
			for _, spec := range catalog {
				fmt.Fprintf(os.Stdout, "%-20s %s\n", spec.Name, spec.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the catalog as JSON")
	return cmd
}

// buildInvokeCmd creates the "invoke" command for one-shot local calls.
func buildInvokeCmd() *cobra.Command {
	var configPath string
	var paramsJSON string

	cmd := &cobra.Command{
		Use:   "invoke <tool>",
		Short: "Run a single tool locally and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(resolveConfigPath(configPath))
			if err != nil {
				return err
			}

			params := map[string]any{}
			if paramsJSON != "" {
				if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}

			result, err := runInvoke(cmd.Context(), cfg, args[0], params)
			if err != nil {
				return err
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&paramsJSON, "params", "", "Tool parameters as a JSON object")
	return cmd
}

// loadConfig loads the file at path, or full defaults when no path is
// given and no default file exists.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat("deskagent.yaml"); err == nil {
			path = "deskagent.yaml"
		} else {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}
