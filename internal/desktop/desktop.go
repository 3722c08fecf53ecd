// Package desktop abstracts the machine's input, window, and capture
// capabilities behind a single Controller interface. Two implementations
// exist: ExecController drives a real X11 desktop through command-line
// helpers, and NoopController records requests without touching anything.
// The factory in factory.go selects one at process start.
package desktop

import (
	"context"
	"time"
)

// Result is the normalized outcome of a single desktop operation.
// Failures are reported in-band (OK=false plus a message) rather than as
// Go errors, so the orchestrator can fold them straight into tool results.
type Result struct {
	OK      bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Notification is a single desktop notification observed by a controller.
type Notification struct {
	Title string    `json:"title"`
	Body  string    `json:"body"`
	At    time.Time `json:"at"`
}

// Controller is the desktop capability consumed by the tool executor and
// skills. Implementations must be safe for sequential use by one caller;
// no concurrency guarantees are required beyond that.
type Controller interface {
	// Name identifies the backend ("exec", "noop") for logs and diagnostics.
	Name() string

	// LaunchApp starts an application by name, command, or path. It returns
	// once the process is spawned; it does not wait for a window.
	LaunchApp(ctx context.Context, target string) Result

	// ListWindows returns the titles of all open windows under
	// Data["windows"] ([]string).
	ListWindows(ctx context.Context) Result

	// FocusWindow raises the first window whose title contains the given
	// string (case-insensitive).
	FocusWindow(ctx context.Context, title string) Result

	// Click presses the given mouse button. When hasPos is true the pointer
	// is moved to (x, y) first; otherwise the current position is used.
	// button is "left", "right", or "middle".
	Click(ctx context.Context, x, y int, hasPos bool, button string) Result

	// TypeText types the string into the focused window, optionally
	// pressing Enter afterwards.
	TypeText(ctx context.Context, text string, enter bool) Result

	// PressKeys sends a chord of simultaneously held keys (e.g. "ctrl", "f").
	PressKeys(ctx context.Context, keys ...string) Result

	// Scroll scrolls by amount in the given direction ("vertical" or
	// "horizontal"). Positive amounts scroll up / right.
	Scroll(ctx context.Context, amount int, direction string) Result

	// Screenshot captures the full screen. On success Data carries "path",
	// "captured_at", and "base64_data" (PNG or JPEG bytes, base64).
	Screenshot(ctx context.Context) Result

	// CheckNotification returns the most recent desktop notification, if
	// any, under Data["found"]/["title"]/["body"]. Absence of a
	// notification is OK=true with found=false.
	CheckNotification(ctx context.Context) Result
}

func ok(message string) Result {
	return Result{OK: true, Message: message}
}

func okData(message string, data map[string]any) Result {
	return Result{OK: true, Message: message, Data: data}
}

func fail(message string) Result {
	return Result{OK: false, Message: message}
}
