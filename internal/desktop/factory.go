package desktop

import (
	"log/slog"
	"os"
	"os/exec"
)

// requiredHelpers are the binaries the exec backend cannot work without.
// scrot and dunstctl degrade individual tools but do not force noop mode.
var requiredHelpers = []string{"xdotool", "wmctrl"}

// New selects the controller backend. backend "noop" and "exec" pin the
// choice; "auto" (or "") probes for a display and the helper binaries
// and falls back to noop when either is missing. The
// DESKAGENT_FORCE_NOOP environment variable pins the noop backend for
// tests and headless deployments regardless of backend.
func New(backend string, cfg ExecConfig, logger *slog.Logger) Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if os.Getenv("DESKAGENT_FORCE_NOOP") != "" {
		logger.Info("desktop backend forced to noop")
		return NewNoopController()
	}
	switch backend {
	case "noop":
		return NewNoopController()
	case "exec":
		return NewExecController(cfg)
	}
	if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		logger.Info("no display detected, using noop desktop backend")
		return NewNoopController()
	}
	for _, bin := range requiredHelpers {
		if _, err := exec.LookPath(bin); err != nil {
			logger.Warn("desktop helper missing, using noop backend", "binary", bin)
			return NewNoopController()
		}
	}
	logger.Info("using exec desktop backend")
	return NewExecController(cfg)
}
