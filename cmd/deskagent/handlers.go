package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/haasonsaas/deskagent/internal/ai"
	"github.com/haasonsaas/deskagent/internal/config"
	"github.com/haasonsaas/deskagent/internal/credentials"
	"github.com/haasonsaas/deskagent/internal/desktop"
	"github.com/haasonsaas/deskagent/internal/executor"
	"github.com/haasonsaas/deskagent/internal/history"
	"github.com/haasonsaas/deskagent/internal/observability"
	"github.com/haasonsaas/deskagent/internal/safety"
	"github.com/haasonsaas/deskagent/internal/server"
	"github.com/haasonsaas/deskagent/internal/skills"
	"github.com/haasonsaas/deskagent/internal/tunnel"
	"github.com/haasonsaas/deskagent/internal/vision"
)

// pipeline bundles everything a running service needs.
type pipeline struct {
	executor   *executor.Executor
	controller desktop.Controller
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// buildPipeline assembles the tool pipeline from configuration.
func buildPipeline(cfg *config.Config) (*pipeline, error) {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})
	slog.SetDefault(logger)

	guard, err := safety.NewGuard(safety.Config{
		ExtraBannedPatterns:  cfg.Safety.BannedPatterns,
		AllowedLaunchTargets: cfg.Safety.AllowedApps,
	})
	if err != nil {
		return nil, fmt.Errorf("safety guard: %w", err)
	}

	metrics := observability.NewMetrics()

	controller := desktop.New(cfg.Desktop.Backend, desktop.ExecConfig{
		ScreenshotDir:   cfg.Desktop.ScreenshotDir,
		TypeDelayMs:     cfg.Desktop.TypeDelayMs,
		CommandTimeout:  cfg.Desktop.CommandTimeout,
		CommandObserver: metrics.ObserveDesktopCommand,
	}, logger)

	vaultDir := cfg.Credentials.VaultDir
	if vaultDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		vaultDir = filepath.Join(home, ".deskagent")
	}
	store, err := credentials.NewStore(vaultDir, logger)
	if err != nil {
		return nil, fmt.Errorf("credential store: %w", err)
	}

	var gateway executor.Gateway
	apiKey := cfg.AI.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey != "" {
		gateway = ai.NewGateway(ai.Config{
			APIKey:        apiKey,
			BaseURL:       cfg.AI.BaseURL,
			VisionModel:   cfg.AI.VisionModel,
			PlanningModel: cfg.AI.PlanningModel,
			MaxTokens:     cfg.AI.MaxTokens,
		})
	} else {
		logger.Warn("no API key configured, perceive/reason disabled")
	}

	registry := skills.NewRegistry()
	skills.RegisterDefaults(registry, controller)

	exec, err := executor.New(executor.Options{
		Controller:   controller,
		Guard:        guard,
		History:      history.NewTracker(cfg.History.Capacity),
		Matcher:      vision.NewMatcher(),
		Gateway:      gateway,
		Credentials:  store,
		Skills:       registry,
		Logger:       logger,
		Metrics:      metrics,
		MaxFileBytes: cfg.Files.MaxBytes,
		PollInterval: cfg.Vision.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("build executor: %w", err)
	}

	return &pipeline{
		executor:   exec,
		controller: controller,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// runServe starts the HTTP server (and the tunnel, when enabled) and
// blocks until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config) error {
	p, err := buildPipeline(cfg)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Config:  cfg.Server,
		Invoker: p.executor,
		Logger:  p.logger,
		Metrics: p.metrics,
		Backend: p.controller.Name(),
	})
	if err != nil {
		return err
	}

	if cfg.Tunnel.Enabled {
		tun := tunnel.New(tunnel.Config{
			Binary:     cfg.Tunnel.Binary,
			InspectURL: cfg.Tunnel.InspectURL,
			StartWait:  cfg.Tunnel.StartWait,
			Logger:     p.logger,
		})
		if !tun.Available() {
			p.logger.Warn("tunnel binary not found, serving locally only",
				"binary", cfg.Tunnel.Binary)
		} else if url, err := tun.Start(ctx, cfg.Server.Port); err != nil {
			p.logger.Warn("tunnel failed to start, serving locally only", "error", err)
		} else {
			p.logger.Info("tunnel active", "public_url", url)
			defer func() { _ = tun.Stop() }()
		}
	}

	err = srv.ListenAndServe(ctx)
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// runInvoke executes one tool through a locally assembled pipeline.
func runInvoke(ctx context.Context, cfg *config.Config, toolName string, params map[string]any) (map[string]any, error) {
	p, err := buildPipeline(cfg)
	if err != nil {
		return nil, err
	}
	return p.executor.Execute(ctx, toolName, params)
}
