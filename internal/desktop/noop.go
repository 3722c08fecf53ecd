package desktop

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// NoopController is a safe, logging-only controller for environments
// without a display. Every operation succeeds and reports what would have
// happened, so the rest of the pipeline (safety, history, transport) can
// be exercised end to end.
type NoopController struct{}

// NewNoopController returns a controller that never touches the desktop.
func NewNoopController() *NoopController {
	return &NoopController{}
}

func (c *NoopController) Name() string { return "noop" }

func (c *NoopController) LaunchApp(_ context.Context, target string) Result {
	return ok(fmt.Sprintf("launch request recorded for %q (noop mode)", target))
}

func (c *NoopController) ListWindows(_ context.Context) Result {
	return okData("window listing not available; returning stub data", map[string]any{
		"windows": []string{},
	})
}

func (c *NoopController) FocusWindow(_ context.Context, title string) Result {
	return ok(fmt.Sprintf("focus request recorded for %q (noop mode)", title))
}

func (c *NoopController) Click(_ context.Context, x, y int, hasPos bool, button string) Result {
	if hasPos {
		return ok(fmt.Sprintf("%s click at (%d, %d) recorded (noop mode)", button, x, y))
	}
	return ok(fmt.Sprintf("%s click at current position recorded (noop mode)", button))
}

func (c *NoopController) TypeText(_ context.Context, text string, enter bool) Result {
	msg := fmt.Sprintf("typed %d characters (noop mode)", len(text))
	if enter {
		msg += ", enter pressed"
	}
	return ok(msg)
}

func (c *NoopController) PressKeys(_ context.Context, keys ...string) Result {
	return ok(fmt.Sprintf("key chord %v recorded (noop mode)", keys))
}

func (c *NoopController) Scroll(_ context.Context, amount int, direction string) Result {
	return ok(fmt.Sprintf("%s scroll by %d recorded (noop mode)", direction, amount))
}

func (c *NoopController) Screenshot(_ context.Context) Result {
	return okData("screenshot capture not available; returning stub payload", map[string]any{
		"captured_at": time.Now().UTC().Format(time.RFC3339),
		"platform":    runtime.GOOS,
	})
}

func (c *NoopController) CheckNotification(_ context.Context) Result {
	return okData("notification check not available (noop mode)", map[string]any{
		"found": false,
	})
}
