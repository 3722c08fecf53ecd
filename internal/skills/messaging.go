package skills

import (
	"context"
	"fmt"
	"time"

	"github.com/haasonsaas/deskagent/internal/desktop"
)

// pause sleeps unless the context is cancelled first. The messaging flows
// depend on the target application catching up between steps.
func pause(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return v
}

// SignalSend sends a message to a contact through Signal Desktop.
type SignalSend struct {
	controller desktop.Controller
	// step delays, overridable in tests
	appWait    time.Duration
	searchWait time.Duration
	selectWait time.Duration
}

// NewSignalSend creates the signal:send skill.
func NewSignalSend(controller desktop.Controller) *SignalSend {
	return &SignalSend{
		controller: controller,
		appWait:    2 * time.Second,
		searchWait: 500 * time.Millisecond,
		selectWait: time.Second,
	}
}

func (s *SignalSend) Name() string        { return "signal:send" }
func (s *SignalSend) Description() string { return "Send a message to a contact on Signal Desktop." }

func (s *SignalSend) Params() map[string]string {
	return map[string]string{
		"contact": "Name of the contact to message",
		"message": "The text message to send",
	}
}

func (s *SignalSend) Execute(ctx context.Context, params map[string]any) desktop.Result {
	contact := stringParam(params, "contact")
	message := stringParam(params, "message")
	if contact == "" || message == "" {
		return desktop.Result{Message: "missing contact or message"}
	}

	if r := s.controller.LaunchApp(ctx, "signal-desktop"); !r.OK {
		return r
	}
	if !pause(ctx, s.appWait) {
		return desktop.Result{Message: "cancelled while waiting for Signal"}
	}

	// Ctrl+F focuses Signal's conversation search.
	if r := s.controller.PressKeys(ctx, "ctrl", "f"); !r.OK {
		return r
	}
	if !pause(ctx, s.searchWait) {
		return desktop.Result{Message: "cancelled during search"}
	}
	if r := s.controller.TypeText(ctx, contact, true); !r.OK {
		return r
	}
	if !pause(ctx, s.selectWait) {
		return desktop.Result{Message: "cancelled during contact selection"}
	}
	if r := s.controller.TypeText(ctx, message, true); !r.OK {
		return r
	}
	return desktop.Result{OK: true, Message: fmt.Sprintf("sent Signal message to %s", contact)}
}

// WhatsAppSend sends a message through WhatsApp Web in Firefox.
type WhatsAppSend struct {
	controller desktop.Controller
	appWait    time.Duration
	tabWait    time.Duration
	loadWait   time.Duration
	searchWait time.Duration
	selectWait time.Duration
}

// NewWhatsAppSend creates the whatsapp:send skill.
func NewWhatsAppSend(controller desktop.Controller) *WhatsAppSend {
	return &WhatsAppSend{
		controller: controller,
		appWait:    time.Second,
		tabWait:    500 * time.Millisecond,
		loadWait:   8 * time.Second,
		searchWait: 500 * time.Millisecond,
		selectWait: time.Second,
	}
}

func (s *WhatsAppSend) Name() string { return "whatsapp:send" }

func (s *WhatsAppSend) Description() string {
	return "Send a message on WhatsApp Web (via Firefox)."
}

func (s *WhatsAppSend) Params() map[string]string {
	return map[string]string{
		"contact": "Name of the contact to message",
		"message": "The text message to send",
	}
}

func (s *WhatsAppSend) Execute(ctx context.Context, params map[string]any) desktop.Result {
	contact := stringParam(params, "contact")
	message := stringParam(params, "message")
	if contact == "" || message == "" {
		return desktop.Result{Message: "missing contact or message"}
	}

	if r := s.controller.LaunchApp(ctx, "firefox"); !r.OK {
		return r
	}
	if !pause(ctx, s.appWait) {
		return desktop.Result{Message: "cancelled while waiting for Firefox"}
	}

	if r := s.controller.PressKeys(ctx, "ctrl", "t"); !r.OK {
		return r
	}
	if !pause(ctx, s.tabWait) {
		return desktop.Result{Message: "cancelled while opening tab"}
	}
	if r := s.controller.TypeText(ctx, "web.whatsapp.com", true); !r.OK {
		return r
	}
	if !pause(ctx, s.loadWait) {
		return desktop.Result{Message: "cancelled while loading WhatsApp Web"}
	}

	// Ctrl+Alt+/ focuses the chat search in WhatsApp Web.
	if r := s.controller.PressKeys(ctx, "ctrl", "alt", "slash"); !r.OK {
		return r
	}
	if !pause(ctx, s.searchWait) {
		return desktop.Result{Message: "cancelled during search"}
	}
	if r := s.controller.TypeText(ctx, contact, true); !r.OK {
		return r
	}
	if !pause(ctx, s.selectWait) {
		return desktop.Result{Message: "cancelled during contact selection"}
	}
	if r := s.controller.TypeText(ctx, message, true); !r.OK {
		return r
	}
	return desktop.Result{OK: true, Message: fmt.Sprintf("sent WhatsApp message to %s", contact)}
}
