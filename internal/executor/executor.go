// Package executor is the single entry point for tool invocations. It
// validates every requested action before it touches the desktop,
// dispatches it to the right capability, and records a masked copy of
// each completed call in the action history before the caller sees the
// result. Two invariants hold for every call: no guarded action reaches
// the desktop without passing the safety guard, and no result is
// returned before the call is logged.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/haasonsaas/deskagent/internal/ai"
	"github.com/haasonsaas/deskagent/internal/desktop"
	"github.com/haasonsaas/deskagent/internal/history"
	"github.com/haasonsaas/deskagent/internal/observability"
	"github.com/haasonsaas/deskagent/internal/safety"
	"github.com/haasonsaas/deskagent/internal/skills"
	"github.com/haasonsaas/deskagent/internal/vision"
)

// ErrUnknownTool reports a tool name outside the catalog. It is the only
// condition Execute signals as a Go error: it indicates a caller/schema
// mismatch, not a runtime failure.
var ErrUnknownTool = errors.New("unsupported tool")

// Defaults for tunable limits.
const (
	DefaultMaxFileBytes  = 5 * 1024 * 1024
	DefaultPollInterval  = 500 * time.Millisecond
	DefaultWaitTimeout   = 10 * time.Second
	DefaultNotifyTimeout = 5 * time.Second
	DefaultConfidence    = 0.8
)

// redactionMarker replaces credential-shaped parameter values in the
// action history.
const redactionMarker = "***"

// sensitiveParams declares, per tool, which parameters are masked before
// logging. Resolved secret values never enter params at all, so this set
// covers only caller-supplied secrets.
var sensitiveParams = map[string]map[string]bool{
	"manage_credentials": {"value": true},
}

// Gateway is the cognition service adapter consumed by perceive/reason.
type Gateway interface {
	AnalyzeFrame(ctx context.Context, frame []byte, instruction string) ai.Outcome
	PlanNextAction(ctx context.Context, analysis, goal string) ai.Outcome
}

// CredentialStore resolves stored secrets for the credential tools.
type CredentialStore interface {
	Set(id, value string) error
	Get(id string) (string, bool, error)
}

// TemplateFinder locates a reference image inside a captured frame.
type TemplateFinder interface {
	FindTemplate(frame []byte, templatePath string, confidence float64) ([]vision.Match, error)
}

// Options wires an Executor. Controller, Guard, and History are
// mandatory; the rest degrade the corresponding tools when absent.
type Options struct {
	Controller  desktop.Controller
	Guard       *safety.Guard
	History     *history.Tracker
	Matcher     TemplateFinder
	Gateway     Gateway
	Credentials CredentialStore
	Skills      *skills.Registry
	Logger      *slog.Logger
	Metrics     *observability.Metrics

	// MaxFileBytes bounds get_bytes payloads (default 5 MiB).
	MaxFileBytes int64

	// PollInterval paces the wait_for_image and check_notification loops.
	PollInterval time.Duration

	// RunCommand executes run_terminal_cmd. Defaults to the local shell.
	RunCommand CommandRunner
}

// Executor validates, dispatches, and records tool calls. It is designed
// for one logical caller issuing sequential calls; the history tracker is
// the only shared mutable state and synchronizes itself.
type Executor struct {
	controller  desktop.Controller
	guard       *safety.Guard
	hist        *history.Tracker
	matcher     TemplateFinder
	gateway     Gateway
	credentials CredentialStore
	skills      *skills.Registry
	logger      *slog.Logger
	metrics     *observability.Metrics

	maxFileBytes int64
	pollInterval time.Duration
	runCommand   CommandRunner
}

// New creates an executor, applying defaults for unset limits.
func New(opts Options) (*Executor, error) {
	if opts.Controller == nil {
		return nil, errors.New("controller is required")
	}
	if opts.Guard == nil {
		return nil, errors.New("guard is required")
	}
	if opts.History == nil {
		return nil, errors.New("history is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.RunCommand == nil {
		opts.RunCommand = runShell
	}
	return &Executor{
		controller:   opts.Controller,
		guard:        opts.Guard,
		hist:         opts.History,
		matcher:      opts.Matcher,
		gateway:      opts.Gateway,
		credentials:  opts.Credentials,
		skills:       opts.Skills,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		maxFileBytes: opts.MaxFileBytes,
		pollInterval: opts.PollInterval,
		runCommand:   opts.RunCommand,
	}, nil
}

// Execute dispatches toolName with params and returns the normalized
// result. Every result carries "success"; "error" is present only on
// failure. The returned error is non-nil only for an unknown tool name,
// which is not recorded in the history.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]any) (map[string]any, error) {
	handler, ok := e.handlers()[toolName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}

	start := time.Now()
	result := handler(ctx, params)
	if result == nil {
		result = failure("handler returned no result")
	}

	// Log before returning so the caller can never observe an unrecorded
	// action. get_agent_history snapshots inside its handler, which is why
	// it excludes itself.
	e.hist.Log(toolName, maskParams(toolName, params), result)

	success, _ := result["success"].(bool)
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	if e.metrics != nil {
		e.metrics.ObserveTool(toolName, outcome, time.Since(start))
	}
	e.logger.Debug("tool executed",
		"tool", toolName, "outcome", outcome, "duration", time.Since(start))

	return result, nil
}

type handlerFunc func(ctx context.Context, params map[string]any) map[string]any

func (e *Executor) handlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		"launch_app":         e.launchApp,
		"list_windows":       e.listWindows,
		"focus_window":       e.focusWindow,
		"click":              e.click,
		"type_text":          e.typeText,
		"scroll":             e.scroll,
		"screenshot":         e.screenshot,
		"get_bytes":          e.getBytes,
		"perceive":           e.perceive,
		"reason":             e.reason,
		"manage_credentials": e.manageCredentials,
		"type_password":      e.typePassword,
		"handle_sudo":        e.handleSudo,
		"find_image":         e.findImage,
		"wait_for_image":     e.waitForImage,
		"run_terminal_cmd":   e.runTerminalCmd,
		"check_notification": e.checkNotification,
		"use_skill":          e.useSkill,
		"get_agent_history":  e.getAgentHistory,
	}
}

// maskParams deep-copies params, replacing values in the tool's declared
// sensitivity set with the redaction marker.
func maskParams(toolName string, params map[string]any) map[string]any {
	masked := make(map[string]any, len(params))
	sensitive := sensitiveParams[toolName]
	for k, v := range params {
		if sensitive[k] {
			masked[k] = redactionMarker
			continue
		}
		masked[k] = v
	}
	return masked
}

// failure builds the standard failed-result shape.
func failure(reason string) map[string]any {
	return map[string]any{"success": false, "error": reason}
}

// success builds a successful result with a message and optional extras.
func successResult(message string, extras map[string]any) map[string]any {
	result := map[string]any{"success": true, "message": message}
	for k, v := range extras {
		result[k] = v
	}
	return result
}

// fromDesktop normalizes a desktop result, merging its data fields
// alongside the standard keys.
func fromDesktop(r desktop.Result) map[string]any {
	if !r.OK {
		return failure(r.Message)
	}
	return successResult(r.Message, r.Data)
}
