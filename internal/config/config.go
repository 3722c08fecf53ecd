// Package config loads the service configuration from YAML or JSON5
// files, with $include resolution, environment variable expansion, and
// defaults for every section.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the desktop agent service.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Desktop     DesktopConfig     `yaml:"desktop"`
	Safety      SafetyConfig      `yaml:"safety"`
	History     HistoryConfig     `yaml:"history"`
	AI          AIConfig          `yaml:"ai"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Files       FilesConfig       `yaml:"files"`
	Vision      VisionConfig      `yaml:"vision"`
	Tunnel      TunnelConfig      `yaml:"tunnel"`
}

// ServerConfig controls the HTTP transport.
type ServerConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	AuthToken   string        `yaml:"auth_token"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// LoggingConfig controls structured logging output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DesktopConfig selects and tunes the desktop backend.
type DesktopConfig struct {
	// Backend is "auto", "exec", or "noop". Auto probes the environment.
	Backend        string        `yaml:"backend"`
	ScreenshotDir  string        `yaml:"screenshot_dir"`
	TypeDelayMs    int           `yaml:"type_delay_ms"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// SafetyConfig extends the built-in banned patterns and allow-list.
type SafetyConfig struct {
	BannedPatterns []string `yaml:"banned_patterns"`
	AllowedApps    []string `yaml:"allowed_apps"`
}

// HistoryConfig bounds the in-memory action history.
type HistoryConfig struct {
	Capacity int `yaml:"capacity"`
}

// AIConfig configures the perception/reasoning service.
type AIConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	VisionModel   string `yaml:"vision_model"`
	PlanningModel string `yaml:"planning_model"`
	MaxTokens     int    `yaml:"max_tokens"`
}

// CredentialsConfig locates the encrypted fallback vault.
type CredentialsConfig struct {
	VaultDir string `yaml:"vault_dir"`
}

// FilesConfig bounds file retrieval.
type FilesConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// VisionConfig tunes template matching and the wait loops.
type VisionConfig struct {
	DefaultConfidence float64       `yaml:"default_confidence"`
	PollInterval      time.Duration `yaml:"poll_interval"`
}

// TunnelConfig controls the optional public tunnel.
type TunnelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Binary  string `yaml:"binary"`
	// InspectURL is the tunnel's local inspection API, queried for the
	// public URL after startup.
	InspectURL string        `yaml:"inspect_url"`
	StartWait  time.Duration `yaml:"start_wait"`
}

// Load reads, merges, and validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied and no file
// involved.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate rejects configurations that cannot produce a working service.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.History.Capacity < 1 {
		return fmt.Errorf("history.capacity must be positive, got %d", c.History.Capacity)
	}
	if c.Vision.DefaultConfidence < 0 || c.Vision.DefaultConfidence > 1 {
		return fmt.Errorf("vision.default_confidence %f out of range [0,1]", c.Vision.DefaultConfidence)
	}
	switch c.Desktop.Backend {
	case "", "auto", "exec", "noop":
	default:
		return fmt.Errorf("desktop.backend %q unknown (want auto, exec, or noop)", c.Desktop.Backend)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8765
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Desktop.Backend == "" {
		cfg.Desktop.Backend = "auto"
	}
	if cfg.Desktop.CommandTimeout == 0 {
		cfg.Desktop.CommandTimeout = 10 * time.Second
	}
	if cfg.History.Capacity == 0 {
		cfg.History.Capacity = 50
	}
	if cfg.AI.VisionModel == "" {
		cfg.AI.VisionModel = "claude-sonnet-4-20250514"
	}
	if cfg.AI.PlanningModel == "" {
		cfg.AI.PlanningModel = "claude-sonnet-4-20250514"
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.Files.MaxBytes == 0 {
		cfg.Files.MaxBytes = 5 * 1024 * 1024
	}
	if cfg.Vision.DefaultConfidence == 0 {
		cfg.Vision.DefaultConfidence = 0.8
	}
	if cfg.Vision.PollInterval == 0 {
		cfg.Vision.PollInterval = 500 * time.Millisecond
	}
	if cfg.Tunnel.Binary == "" {
		cfg.Tunnel.Binary = "ngrok"
	}
	if cfg.Tunnel.InspectURL == "" {
		cfg.Tunnel.InspectURL = "http://127.0.0.1:4040/api/tunnels"
	}
	if cfg.Tunnel.StartWait == 0 {
		cfg.Tunnel.StartWait = 3 * time.Second
	}
}
