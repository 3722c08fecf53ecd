package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

type cannedCompleter struct {
	text  string
	err   error
	model string
	calls int
}

func (c *cannedCompleter) complete(_ context.Context, model string, _ int, _ ...anthropic.ContentBlockParamUnion) (string, error) {
	c.calls++
	c.model = model
	return c.text, c.err
}

func testGateway(c *cannedCompleter) *Gateway {
	return &Gateway{
		cfg: Config{
			VisionModel:   "vision-model",
			PlanningModel: "planning-model",
			MaxTokens:     256,
		},
		client: c,
	}
}

func TestAnalyzeFrameReturnsServiceText(t *testing.T) {
	c := &cannedCompleter{text: "A blue Submit button at (100, 200)."}
	g := testGateway(c)

	out := g.AnalyzeFrame(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "find the button")
	if out.ServiceErr {
		t.Fatalf("unexpected service error: %q", out.Text)
	}
	if out.Text != "A blue Submit button at (100, 200)." {
		t.Errorf("analysis altered: %q", out.Text)
	}
	if c.model != "vision-model" {
		t.Errorf("expected vision model, got %q", c.model)
	}
}

func TestAnalyzeFrameSoftFailure(t *testing.T) {
	c := &cannedCompleter{err: errors.New("connection refused")}
	g := testGateway(c)

	out := g.AnalyzeFrame(context.Background(), []byte("img"), "")
	if !out.ServiceErr {
		t.Fatal("expected ServiceErr to be tagged")
	}
	if out.Text == "" {
		t.Fatal("soft failure must still return text")
	}
	if !strings.Contains(out.Text, "connection refused") {
		t.Errorf("failure text should describe the error: %q", out.Text)
	}
}

func TestPlanNextActionUsesPlanningModel(t *testing.T) {
	c := &cannedCompleter{text: "Click the Save button at (340, 120)."}
	g := testGateway(c)

	out := g.PlanNextAction(context.Background(), "save button visible", "save the document")
	if out.ServiceErr {
		t.Fatalf("unexpected service error: %q", out.Text)
	}
	if c.model != "planning-model" {
		t.Errorf("expected planning model, got %q", c.model)
	}
	if out.Text != "Click the Save button at (340, 120)." {
		t.Errorf("plan altered: %q", out.Text)
	}
}

func TestPlanNextActionSoftFailure(t *testing.T) {
	c := &cannedCompleter{err: errors.New("503 overloaded")}
	g := testGateway(c)

	out := g.PlanNextAction(context.Background(), "analysis", "goal")
	if !out.ServiceErr || out.Text == "" {
		t.Errorf("expected tagged soft failure with text, got %+v", out)
	}
}

func TestSniffMediaType(t *testing.T) {
	if got := sniffMediaType([]byte{0xFF, 0xD8, 0xFF, 0xE0}); got != "image/jpeg" {
		t.Errorf("jpeg magic should sniff as jpeg, got %s", got)
	}
	if got := sniffMediaType([]byte{0x89, 'P', 'N', 'G'}); got != "image/png" {
		t.Errorf("png magic should sniff as png, got %s", got)
	}
	if got := sniffMediaType(nil); got != "image/png" {
		t.Errorf("default should be png, got %s", got)
	}
}

func TestNewGatewayAppliesDefaults(t *testing.T) {
	g := NewGateway(Config{APIKey: "test"})
	if g.cfg.VisionModel != DefaultVisionModel {
		t.Errorf("vision model default missing: %q", g.cfg.VisionModel)
	}
	if g.cfg.PlanningModel != DefaultPlanningModel {
		t.Errorf("planning model default missing: %q", g.cfg.PlanningModel)
	}
	if g.cfg.MaxTokens != DefaultMaxTokens {
		t.Errorf("max tokens default missing: %d", g.cfg.MaxTokens)
	}
}
