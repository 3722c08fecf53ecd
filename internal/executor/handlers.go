package executor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/haasonsaas/deskagent/internal/ai"
	"github.com/haasonsaas/deskagent/internal/vision"
)

// CommandRunner executes a shell command and returns its separated
// output streams and exit code. err is reserved for failures to run the
// command at all; a nonzero exit is reported through code.
type CommandRunner func(ctx context.Context, command string) (stdout, stderr string, code int, err error)

// runShell is the default CommandRunner.
func runShell(ctx context.Context, command string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	code := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
			err = nil
		}
	}
	return out.String(), errOut.String(), code, err
}

func (e *Executor) launchApp(ctx context.Context, params map[string]any) map[string]any {
	target, ok := stringParam(params, "target")
	if !ok {
		return failure("target is required")
	}
	if verdict := e.guard.ValidateLaunchTarget(target); !verdict.Allowed {
		e.logger.Warn("launch rejected", "target", target, "reason", verdict.Reason)
		return failure(verdict.Reason)
	}
	return fromDesktop(e.controller.LaunchApp(ctx, target))
}

func (e *Executor) listWindows(ctx context.Context, _ map[string]any) map[string]any {
	return fromDesktop(e.controller.ListWindows(ctx))
}

func (e *Executor) focusWindow(ctx context.Context, params map[string]any) map[string]any {
	title, ok := stringParam(params, "title")
	if !ok {
		return failure("title is required")
	}
	return fromDesktop(e.controller.FocusWindow(ctx, title))
}

func (e *Executor) click(ctx context.Context, params map[string]any) map[string]any {
	x, hasX := intParam(params, "x")
	y, hasY := intParam(params, "y")
	if hasX != hasY {
		return failure("x and y must be provided together")
	}
	button := stringParamDefault(params, "button", "left")
	return fromDesktop(e.controller.Click(ctx, x, y, hasX, button))
}

func (e *Executor) typeText(ctx context.Context, params map[string]any) map[string]any {
	text, ok := stringParam(params, "text")
	if !ok {
		return failure("text is required")
	}
	if verdict := e.guard.ValidateText(text); !verdict.Allowed {
		e.logger.Warn("text input rejected", "reason", verdict.Reason)
		return failure(verdict.Reason)
	}
	enter := boolParamDefault(params, "enter", false)
	return fromDesktop(e.controller.TypeText(ctx, text, enter))
}

func (e *Executor) scroll(ctx context.Context, params map[string]any) map[string]any {
	amount, ok := intParam(params, "amount")
	if !ok {
		return failure("amount is required")
	}
	direction := stringParamDefault(params, "direction", "vertical")
	return fromDesktop(e.controller.Scroll(ctx, amount, direction))
}

func (e *Executor) screenshot(ctx context.Context, _ map[string]any) map[string]any {
	return fromDesktop(e.controller.Screenshot(ctx))
}

func (e *Executor) getBytes(_ context.Context, params map[string]any) map[string]any {
	path, ok := stringParam(params, "path")
	if !ok {
		return failure("path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return failure(fmt.Sprintf("invalid path: %v", err))
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return failure(fmt.Sprintf("file not found: %s", abs))
		}
		return failure(fmt.Sprintf("cannot access file: %v", err))
	}
	if info.IsDir() {
		return failure(fmt.Sprintf("path is a directory: %s", abs))
	}
	if info.Size() > e.maxFileBytes {
		return failure(fmt.Sprintf("file exceeds size limit: %d bytes (limit %d)", info.Size(), e.maxFileBytes))
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return failure(fmt.Sprintf("cannot read file: %v", err))
	}
	return successResult(fmt.Sprintf("read %d bytes", len(data)), map[string]any{
		"path":        abs,
		"size":        len(data),
		"base64_data": base64.StdEncoding.EncodeToString(data),
	})
}

// captureFrame takes a screenshot and returns its decoded image bytes.
func (e *Executor) captureFrame(ctx context.Context) ([]byte, error) {
	shot := e.controller.Screenshot(ctx)
	if !shot.OK {
		return nil, fmt.Errorf("screenshot failed: %s", shot.Message)
	}
	encoded, _ := shot.Data["base64_data"].(string)
	if encoded == "" {
		return nil, fmt.Errorf("screenshot produced no image data")
	}
	frame, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("screenshot data is not valid base64: %v", err)
	}
	return frame, nil
}

func (e *Executor) perceive(ctx context.Context, params map[string]any) map[string]any {
	if e.gateway == nil {
		return failure("perception service is not configured")
	}
	instruction := stringParamDefault(params, "instruction", "")
	frame, err := e.captureFrame(ctx)
	if err != nil {
		return failure(err.Error())
	}
	start := time.Now()
	outcome := e.gateway.AnalyzeFrame(ctx, frame, instruction)
	e.observeAIRequest("perceive", outcome, time.Since(start))
	extras := map[string]any{"analysis": outcome.Text}
	if outcome.ServiceErr {
		extras["service_error"] = true
	}
	return successResult("screen analyzed", extras)
}

// observeAIRequest feeds the cognition-service metrics when configured.
func (e *Executor) observeAIRequest(operation string, outcome ai.Outcome, duration time.Duration) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if outcome.ServiceErr {
		status = "error"
	}
	e.metrics.ObserveAIRequest(operation, status, duration)
}

func (e *Executor) reason(ctx context.Context, params map[string]any) map[string]any {
	if e.gateway == nil {
		return failure("reasoning service is not configured")
	}
	analysis, ok := stringParam(params, "analysis")
	if !ok {
		return failure("analysis is required")
	}
	goal, ok := stringParam(params, "goal")
	if !ok {
		return failure("goal is required")
	}
	start := time.Now()
	outcome := e.gateway.PlanNextAction(ctx, analysis, goal)
	e.observeAIRequest("reason", outcome, time.Since(start))
	extras := map[string]any{"plan": outcome.Text}
	if outcome.ServiceErr {
		extras["service_error"] = true
	}
	return successResult("next action planned", extras)
}

func (e *Executor) manageCredentials(_ context.Context, params map[string]any) map[string]any {
	if e.credentials == nil {
		return failure("credential store is not configured")
	}
	action, ok := stringParam(params, "action")
	if !ok {
		return failure("action is required")
	}
	id, ok := stringParam(params, "id")
	if !ok {
		return failure("id is required")
	}
	switch action {
	case "set":
		value, ok := stringParam(params, "value")
		if !ok {
			return failure("value is required for set")
		}
		if err := e.credentials.Set(id, value); err != nil {
			return failure(fmt.Sprintf("cannot store credential: %v", err))
		}
		return successResult(fmt.Sprintf("credential %q stored", id), nil)
	case "check":
		_, found, err := e.credentials.Get(id)
		if err != nil {
			return failure(fmt.Sprintf("cannot check credential: %v", err))
		}
		msg := fmt.Sprintf("credential %q not found", id)
		if found {
			msg = fmt.Sprintf("credential %q exists", id)
		}
		return successResult(msg, map[string]any{"found": found})
	default:
		return failure(fmt.Sprintf("unknown action %q (want set or check)", action))
	}
}

// typeSecret resolves a stored credential and types it. The secret skips
// the text safety check on purpose: it never originates from the model,
// and pattern-matching against it would leak information about its
// content. The value is not logged and does not appear in params.
func (e *Executor) typeSecret(ctx context.Context, id string, enter bool) map[string]any {
	if e.credentials == nil {
		return failure("credential store is not configured")
	}
	secret, found, err := e.credentials.Get(id)
	if err != nil {
		return failure(fmt.Sprintf("cannot resolve credential: %v", err))
	}
	if !found {
		return failure(fmt.Sprintf("credential %q not found", id))
	}
	r := e.controller.TypeText(ctx, secret, enter)
	if !r.OK {
		return failure(r.Message)
	}
	return successResult(fmt.Sprintf("typed credential %q", id), nil)
}

func (e *Executor) typePassword(ctx context.Context, params map[string]any) map[string]any {
	id, ok := stringParam(params, "id")
	if !ok {
		return failure("id is required")
	}
	enter := boolParamDefault(params, "enter", false)
	return e.typeSecret(ctx, id, enter)
}

func (e *Executor) handleSudo(ctx context.Context, _ map[string]any) map[string]any {
	return e.typeSecret(ctx, "sudo_pass", true)
}

func (e *Executor) findImage(ctx context.Context, params map[string]any) map[string]any {
	if e.matcher == nil {
		return failure("template matching is not configured")
	}
	templatePath, ok := stringParam(params, "template_path")
	if !ok {
		return failure("template_path is required")
	}
	confidence := floatParamDefault(params, "confidence", DefaultConfidence)
	frame, err := e.captureFrame(ctx)
	if err != nil {
		return failure(err.Error())
	}
	matches, err := e.matcher.FindTemplate(frame, templatePath, confidence)
	if err != nil {
		return failure(fmt.Sprintf("template matching failed: %v", err))
	}
	return successResult(fmt.Sprintf("found %d match(es)", len(matches)), map[string]any{
		"matches": matchMaps(matches),
	})
}

func (e *Executor) waitForImage(ctx context.Context, params map[string]any) map[string]any {
	if e.matcher == nil {
		return failure("template matching is not configured")
	}
	templatePath, ok := stringParam(params, "template_path")
	if !ok {
		return failure("template_path is required")
	}
	confidence := floatParamDefault(params, "confidence", DefaultConfidence)
	timeout := durationParamDefault(params, "timeout", DefaultWaitTimeout)

	deadline := time.Now().Add(timeout)
	for {
		frame, err := e.captureFrame(ctx)
		if err != nil {
			return failure(err.Error())
		}
		matches, err := e.matcher.FindTemplate(frame, templatePath, confidence)
		if err != nil {
			return failure(fmt.Sprintf("template matching failed: %v", err))
		}
		if len(matches) > 0 {
			// Matches arrive sorted by descending confidence.
			return successResult("image appeared", map[string]any{
				"match": matchMap(matches[0]),
			})
		}
		if time.Now().After(deadline) {
			// Expiry is an expected outcome, not a capability failure.
			return map[string]any{
				"success": false,
				"error":   fmt.Sprintf("timed out after %s waiting for image", timeout),
			}
		}
		select {
		case <-ctx.Done():
			return failure(fmt.Sprintf("wait aborted: %v", ctx.Err()))
		case <-time.After(e.pollInterval):
		}
	}
}

func (e *Executor) runTerminalCmd(ctx context.Context, params map[string]any) map[string]any {
	command, ok := stringParam(params, "command")
	if !ok {
		return failure("command is required")
	}
	if verdict := e.guard.ValidateText(command); !verdict.Allowed {
		e.logger.Warn("terminal command rejected", "reason", verdict.Reason)
		return failure(verdict.Reason)
	}
	stdout, stderr, code, err := e.runCommand(ctx, command)
	if err != nil {
		return failure(fmt.Sprintf("cannot run command: %v", err))
	}
	result := map[string]any{
		"success":    code == 0,
		"stdout":     stdout,
		"stderr":     stderr,
		"returncode": code,
	}
	if code != 0 {
		result["error"] = fmt.Sprintf("command exited with status %d", code)
	}
	return result
}

func (e *Executor) checkNotification(ctx context.Context, params map[string]any) map[string]any {
	keyword := stringParamDefault(params, "keyword", "")
	timeout := durationParamDefault(params, "timeout", DefaultNotifyTimeout)

	deadline := time.Now().Add(timeout)
	for {
		r := e.controller.CheckNotification(ctx)
		if !r.OK {
			return failure(r.Message)
		}
		if found, _ := r.Data["found"].(bool); found && notificationMatches(r.Data, keyword) {
			return fromDesktop(r)
		}
		if time.Now().After(deadline) {
			return successResult("no matching notification", map[string]any{"found": false})
		}
		select {
		case <-ctx.Done():
			return failure(fmt.Sprintf("wait aborted: %v", ctx.Err()))
		case <-time.After(e.pollInterval):
		}
	}
}

// notificationMatches reports whether the notification's title or body
// contains the keyword (case-insensitive). An empty keyword matches any
// notification.
func notificationMatches(data map[string]any, keyword string) bool {
	if keyword == "" {
		return true
	}
	keyword = strings.ToLower(keyword)
	title, _ := data["title"].(string)
	body, _ := data["body"].(string)
	return strings.Contains(strings.ToLower(title), keyword) ||
		strings.Contains(strings.ToLower(body), keyword)
}

func (e *Executor) useSkill(ctx context.Context, params map[string]any) map[string]any {
	if e.skills == nil {
		return failure("skills are not configured")
	}
	name, ok := stringParam(params, "skill")
	if !ok {
		return failure("skill is required")
	}
	skill, ok := e.skills.Get(name)
	if !ok {
		names := make([]string, 0)
		for _, info := range e.skills.List() {
			names = append(names, info.Name)
		}
		sort.Strings(names)
		return failure(fmt.Sprintf("unknown skill %q (available: %s)", name, strings.Join(names, ", ")))
	}
	skillParams, _ := params["params"].(map[string]any)
	return fromDesktop(skill.Execute(ctx, skillParams))
}

func (e *Executor) getAgentHistory(_ context.Context, params map[string]any) map[string]any {
	limit := 10
	if v, ok := intParam(params, "limit"); ok {
		limit = v
	}
	// Snapshot before this call is logged, so the reply never includes
	// the get_agent_history call itself.
	entries := e.hist.Recent(limit)
	records := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		records = append(records, map[string]any{
			"id":        entry.ID,
			"timestamp": entry.Timestamp,
			"tool_name": entry.ToolName,
			"params":    entry.Params,
			"result":    entry.Result,
			"success":   entry.Success,
		})
	}
	return successResult(fmt.Sprintf("%d action(s)", len(records)), map[string]any{
		"history": records,
		"count":   len(records),
	})
}

func matchMap(m vision.Match) map[string]any {
	return map[string]any{
		"x": m.X, "y": m.Y, "w": m.Width, "h": m.Height,
		"center_x": m.CenterX, "center_y": m.CenterY,
		"confidence": m.Confidence,
	}
}

func matchMaps(matches []vision.Match) []any {
	out := make([]any, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchMap(m))
	}
	return out
}
