// Package ai adapts captured frames and analysis text into requests the
// cognition service understands. The gateway keeps no state and owns one
// contract: the caller always gets some text back. Transport and service
// failures are folded into the returned Outcome rather than raised,
// because the output is surfaced directly to the calling agent.
package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Defaults applied when the config leaves fields empty.
const (
	DefaultVisionModel   = "claude-sonnet-4-20250514"
	DefaultPlanningModel = "claude-sonnet-4-20250514"
	DefaultMaxTokens     = 1024
)

// Config controls the gateway's models and transport.
type Config struct {
	APIKey        string
	BaseURL       string
	VisionModel   string
	PlanningModel string
	MaxTokens     int
}

// Outcome is the gateway's tagged result. ServiceErr marks text that
// describes a transport or service failure instead of a real analysis;
// both carry a non-empty Text.
type Outcome struct {
	Text       string
	ServiceErr bool
}

// completer narrows the SDK surface the gateway uses, so tests can
// substitute a canned cognition service.
type completer interface {
	complete(ctx context.Context, model string, maxTokens int, blocks ...anthropic.ContentBlockParamUnion) (string, error)
}

// Gateway forwards frames and analysis text to the cognition service.
type Gateway struct {
	cfg    Config
	client completer
}

// NewGateway creates a gateway backed by the Anthropic Messages API.
func NewGateway(cfg Config) *Gateway {
	if cfg.VisionModel == "" {
		cfg.VisionModel = DefaultVisionModel
	}
	if cfg.PlanningModel == "" {
		cfg.PlanningModel = DefaultPlanningModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	options := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(options...)
	return &Gateway{cfg: cfg, client: &sdkCompleter{client: client}}
}

// AnalyzeFrame describes the UI visible in an encoded screenshot,
// optionally focused by instruction. Failures are reported in the
// Outcome, never as an error.
func (g *Gateway) AnalyzeFrame(ctx context.Context, frame []byte, instruction string) Outcome {
	prompt := fmt.Sprintf(
		"Analyze this UI screenshot. %s\n"+
			"Describe the visible interactive elements, their approximate locations, and the overall context. "+
			"If you see a button, input field, or text, describe it and its approximate location. "+
			"Be specific about buttons, input fields, and text, and include coordinates for each element, "+
			"using the center of the element.",
		instruction)

	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewImageBlockBase64(sniffMediaType(frame), base64.StdEncoding.EncodeToString(frame)),
		anthropic.NewTextBlock(prompt),
	}
	text, err := g.client.complete(ctx, g.cfg.VisionModel, g.cfg.MaxTokens, blocks...)
	if err != nil {
		return Outcome{Text: fmt.Sprintf("error analyzing image: %v", err), ServiceErr: true}
	}
	return Outcome{Text: text}
}

// PlanNextAction asks for the single next step toward goal given the
// current UI analysis. Same soft-failure contract as AnalyzeFrame.
func (g *Gateway) PlanNextAction(ctx context.Context, analysis, goal string) Outcome {
	prompt := fmt.Sprintf(
		"Current UI State Analysis:\n%s\n\n"+
			"User Goal: %s\n\n"+
			"Based on the UI state and the goal, determine the single next immediate action to take. "+
			"Return the plan in a clear, step-by-step format. "+
			"If you need to click something, specify the element and its approximate location (center of the element). "+
			"If you need to type something, specify the text.",
		analysis, goal)

	text, err := g.client.complete(ctx, g.cfg.PlanningModel, g.cfg.MaxTokens, anthropic.NewTextBlock(prompt))
	if err != nil {
		return Outcome{Text: fmt.Sprintf("error planning action: %v", err), ServiceErr: true}
	}
	return Outcome{Text: text}
}

type sdkCompleter struct {
	client anthropic.Client
}

func (c *sdkCompleter) complete(ctx context.Context, model string, maxTokens int, blocks ...anthropic.ContentBlockParamUnion) (string, error) {
	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	for _, block := range message.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("cognition service returned no text")
	}
	return out.String(), nil
}

// sniffMediaType inspects magic bytes; frames are PNG or JPEG in practice.
func sniffMediaType(frame []byte) string {
	if len(frame) >= 3 && frame[0] == 0xFF && frame[1] == 0xD8 && frame[2] == 0xFF {
		return "image/jpeg"
	}
	return "image/png"
}
