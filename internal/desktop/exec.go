package desktop

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// X11 button numbers for xdotool click.
var buttonNumbers = map[string]string{
	"left":   "1",
	"middle": "2",
	"right":  "3",
}

// ExecConfig controls the exec-backed controller.
type ExecConfig struct {
	// ScreenshotDir is where captured frames are written.
	// Defaults to "screenshots" under the working directory.
	ScreenshotDir string

	// TypeDelayMs is the per-keystroke delay passed to xdotool type.
	// Defaults to 10ms; slower desktops drop keystrokes without it.
	TypeDelayMs int

	// CommandTimeout bounds every helper invocation. Defaults to 15s.
	CommandTimeout time.Duration

	// CommandObserver, when set, is told about every helper invocation
	// with the binary name and "success" or "error".
	CommandObserver func(binary, status string)
}

// ExecController drives an X11 desktop through command-line helpers:
// xdotool for input, wmctrl for window management, scrot for capture, and
// xdg-open for launching. Helper availability is probed by the factory;
// individual operations still fail soft when a helper misbehaves.
type ExecController struct {
	cfg ExecConfig
}

// NewExecController creates an exec-backed controller.
func NewExecController(cfg ExecConfig) *ExecController {
	if cfg.ScreenshotDir == "" {
		cfg.ScreenshotDir = "screenshots"
	}
	if cfg.TypeDelayMs <= 0 {
		cfg.TypeDelayMs = 10
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	return &ExecController{cfg: cfg}
}

func (c *ExecController) Name() string { return "exec" }

func (c *ExecController) run(ctx context.Context, name string, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()
	out, err := exec.CommandContext(runCtx, name, args...).CombinedOutput()
	if c.cfg.CommandObserver != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		c.cfg.CommandObserver(name, status)
	}
	if err != nil {
		return string(out), fmt.Errorf("%s: %w (%s)", name, err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}

func (c *ExecController) LaunchApp(ctx context.Context, target string) Result {
	target = strings.TrimSpace(target)
	if target == "" {
		return fail("launch target is empty")
	}

	var cmd *exec.Cmd
	if strings.ContainsAny(target, "/\\") {
		cmd = exec.Command("xdg-open", target)
	} else {
		parts := strings.Fields(target)
		cmd = exec.Command(parts[0], parts[1:]...)
	}
	// Detach so the app outlives a single tool call.
	if err := cmd.Start(); err != nil {
		return fail(fmt.Sprintf("failed to launch %q: %v", target, err))
	}
	go cmd.Wait() // reap
	return ok(fmt.Sprintf("launched %q", target))
}

func (c *ExecController) ListWindows(ctx context.Context) Result {
	out, err := c.run(ctx, "wmctrl", "-l")
	if err != nil {
		return fail(fmt.Sprintf("unable to list windows: %v", err))
	}
	windows := parseWmctrlList(out)
	return okData("windows listed", map[string]any{"windows": windows})
}

// parseWmctrlList extracts window titles from `wmctrl -l` output.
// Each line is: <id> <desktop> <host> <title...>
func parseWmctrlList(out string) []string {
	windows := []string{}
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		title := strings.TrimSpace(strings.Join(fields[3:], " "))
		if title != "" {
			windows = append(windows, title)
		}
	}
	return windows
}

func (c *ExecController) FocusWindow(ctx context.Context, title string) Result {
	if strings.TrimSpace(title) == "" {
		return fail("window title is empty")
	}
	listing := c.ListWindows(ctx)
	if !listing.OK {
		return listing
	}
	windows, _ := listing.Data["windows"].([]string)
	for _, w := range windows {
		if strings.Contains(strings.ToLower(w), strings.ToLower(title)) {
			if _, err := c.run(ctx, "wmctrl", "-a", w); err != nil {
				return fail(fmt.Sprintf("unable to focus window %q: %v", w, err))
			}
			return ok(fmt.Sprintf("focused window %q", w))
		}
	}
	return fail(fmt.Sprintf("no window found matching %q", title))
}

func (c *ExecController) Click(ctx context.Context, x, y int, hasPos bool, button string) Result {
	num, found := buttonNumbers[button]
	if !found {
		return fail(fmt.Sprintf("unknown mouse button %q", button))
	}
	if hasPos {
		if _, err := c.run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y)); err != nil {
			return fail(fmt.Sprintf("mouse move failed: %v", err))
		}
	}
	if _, err := c.run(ctx, "xdotool", "click", num); err != nil {
		return fail(fmt.Sprintf("click failed: %v", err))
	}
	if hasPos {
		return ok(fmt.Sprintf("clicked %s at (%d, %d)", button, x, y))
	}
	return ok(fmt.Sprintf("clicked %s at current position", button))
}

func (c *ExecController) TypeText(ctx context.Context, text string, enter bool) Result {
	delay := strconv.Itoa(c.cfg.TypeDelayMs)
	if _, err := c.run(ctx, "xdotool", "type", "--delay", delay, "--", text); err != nil {
		return fail(fmt.Sprintf("typing failed: %v", err))
	}
	if enter {
		if _, err := c.run(ctx, "xdotool", "key", "Return"); err != nil {
			return fail(fmt.Sprintf("enter key failed: %v", err))
		}
	}
	return ok("text typed")
}

func (c *ExecController) PressKeys(ctx context.Context, keys ...string) Result {
	if len(keys) == 0 {
		return fail("no keys given")
	}
	chord := strings.Join(keys, "+")
	if _, err := c.run(ctx, "xdotool", "key", chord); err != nil {
		return fail(fmt.Sprintf("key chord %q failed: %v", chord, err))
	}
	return ok(fmt.Sprintf("pressed %s", chord))
}

func (c *ExecController) Scroll(ctx context.Context, amount int, direction string) Result {
	if amount == 0 {
		return ok("scroll by 0 is a no-op")
	}
	// xdotool buttons: 4 up, 5 down, 6 left, 7 right.
	var button string
	switch direction {
	case "horizontal":
		button = "7"
		if amount > 0 {
			button = "6"
		}
	case "vertical", "":
		button = "5"
		if amount > 0 {
			button = "4"
		}
	default:
		return fail(fmt.Sprintf("unknown scroll direction %q", direction))
	}
	clicks := amount
	if clicks < 0 {
		clicks = -clicks
	}
	if _, err := c.run(ctx, "xdotool", "click", "--repeat", strconv.Itoa(clicks), button); err != nil {
		return fail(fmt.Sprintf("scroll failed: %v", err))
	}
	return ok(fmt.Sprintf("%s scroll by %d executed", direction, amount))
}

func (c *ExecController) Screenshot(ctx context.Context) Result {
	if err := os.MkdirAll(c.cfg.ScreenshotDir, 0o755); err != nil {
		return fail(fmt.Sprintf("screenshot dir: %v", err))
	}
	capturedAt := time.Now().UTC()
	path := filepath.Join(c.cfg.ScreenshotDir,
		fmt.Sprintf("screenshot-%s.png", capturedAt.Format("20060102T150405")))
	if _, err := c.run(ctx, "scrot", "--overwrite", path); err != nil {
		return fail(fmt.Sprintf("screenshot failed: %v", err))
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fail(fmt.Sprintf("screenshot read failed: %v", err))
	}
	normalized, err := NormalizeFrame(raw, nil)
	if err != nil {
		return fail(fmt.Sprintf("screenshot decode failed: %v", err))
	}
	return okData("screenshot captured", map[string]any{
		"path":        path,
		"captured_at": capturedAt.Format(time.RFC3339),
		"base64_data": base64.StdEncoding.EncodeToString(normalized.Buffer),
	})
}

func (c *ExecController) CheckNotification(ctx context.Context) Result {
	// dunstctl emits the notification history as JSON.
	out, err := c.run(ctx, "dunstctl", "history")
	if err != nil {
		return fail(fmt.Sprintf("notification check failed: %v", err))
	}
	n, found := parseDunstHistory(out)
	if !found {
		return okData("no notifications", map[string]any{"found": false})
	}
	return okData("notification found", map[string]any{
		"found": true,
		"title": n.Title,
		"body":  n.Body,
	})
}

// parseDunstHistory pulls the newest entry out of `dunstctl history` JSON.
func parseDunstHistory(raw string) (Notification, bool) {
	var payload struct {
		Data [][]struct {
			Summary struct {
				Data string `json:"data"`
			} `json:"summary"`
			Body struct {
				Data string `json:"data"`
			} `json:"body"`
			Timestamp struct {
				Data int64 `json:"data"`
			} `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Notification{}, false
	}
	if len(payload.Data) == 0 || len(payload.Data[0]) == 0 {
		return Notification{}, false
	}
	first := payload.Data[0][0]
	return Notification{
		Title: first.Summary.Data,
		Body:  first.Body.Data,
		At:    time.UnixMicro(first.Timestamp.Data),
	}, true
}
