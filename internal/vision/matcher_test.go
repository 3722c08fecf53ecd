package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// stamp draws a distinctive 10x10 gradient pattern at (ox, oy).
func stamp(img *image.Gray, ox, oy int) {
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetGray(ox+x, oy+y, color.Gray{Y: uint8(20 + x*15 + y*8)})
		}
	}
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func writeTemplate(t *testing.T) string {
	t.Helper()
	tpl := image.NewGray(image.Rect(0, 0, 10, 10))
	stamp(tpl, 0, 0)
	path := filepath.Join(t.TempDir(), "template.png")
	if err := os.WriteFile(path, pngBytes(t, tpl), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

func TestFindTemplateExactMatch(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 100, 100))
	stamp(frame, 50, 50)
	tplPath := writeTemplate(t)

	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d: %+v", len(matches), matches)
	}
	m := matches[0]
	if m.X != 50 || m.Y != 50 || m.Width != 10 || m.Height != 10 {
		t.Errorf("unexpected bounds: %+v", m)
	}
	if m.CenterX != 55 || m.CenterY != 55 {
		t.Errorf("unexpected center: (%d, %d)", m.CenterX, m.CenterY)
	}
	if math.Abs(m.Confidence-1.0) > 1e-6 {
		t.Errorf("exact match should score 1.0, got %f", m.Confidence)
	}
}

func TestFindTemplateNoMatch(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 100, 100)) // uniform black
	tplPath := writeTemplate(t)

	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no matches, got %+v", matches)
	}
}

func TestFindTemplateMultipleOccurrences(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 100, 100))
	stamp(frame, 10, 10)
	stamp(frame, 70, 60)
	tplPath := writeTemplate(t)

	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 0.9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}
	found := map[[2]int]bool{}
	for _, m := range matches {
		found[[2]int{m.X, m.Y}] = true
	}
	if !found[[2]int{10, 10}] || !found[[2]int{70, 60}] {
		t.Errorf("expected matches at (10,10) and (70,60), got %+v", matches)
	}
}

func TestFindTemplateSuppressesNearDuplicates(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 60, 60))
	stamp(frame, 25, 25)
	tplPath := writeTemplate(t)

	// A generous threshold lets alignments adjacent to the true hit pass;
	// they must be merged into a single match.
	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, a := range matches {
		for _, b := range matches[i+1:] {
			if abs(a.X-b.X) < 5 && abs(a.Y-b.Y) < 5 {
				t.Fatalf("matches %+v and %+v overlap within half a template", a, b)
			}
		}
	}
}

func TestFindTemplateOrderedByConfidence(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 100, 100))
	stamp(frame, 10, 10)
	// A degraded copy: same pattern with a few pixels perturbed.
	stamp(frame, 70, 60)
	frame.SetGray(72, 62, color.Gray{Y: 255})
	frame.SetGray(75, 65, color.Gray{Y: 255})
	tplPath := writeTemplate(t)

	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 0.7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Confidence > matches[i-1].Confidence {
			t.Fatalf("matches not sorted by descending confidence: %+v", matches)
		}
	}
	if len(matches) < 2 || matches[0].X != 10 || matches[0].Y != 10 {
		t.Errorf("exact copy should rank first: %+v", matches)
	}
}

func TestFindTemplateInvalidFrame(t *testing.T) {
	tplPath := writeTemplate(t)
	if _, err := NewMatcher().FindTemplate([]byte("not an image"), tplPath, 0.8); err == nil {
		t.Error("expected decode error for invalid frame")
	}
}

func TestFindTemplateMissingTemplate(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 20, 20))
	_, err := NewMatcher().FindTemplate(pngBytes(t, frame), filepath.Join(t.TempDir(), "nope.png"), 0.8)
	if err == nil {
		t.Error("expected load error for missing template")
	}
}

func TestFindTemplateLargerThanFrame(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 5, 5))
	tplPath := writeTemplate(t)
	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 0.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("oversized template has no valid alignments, got %+v", matches)
	}
}

func TestFindTemplateLenientThreshold(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 30, 30))
	stamp(frame, 5, 5)
	tplPath := writeTemplate(t)

	// Out-of-range thresholds are accepted as-is, not rejected.
	if _, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, 1.5); err != nil {
		t.Errorf("threshold above 1 should not error: %v", err)
	}
	matches, err := NewMatcher().FindTemplate(pngBytes(t, frame), tplPath, -2)
	if err != nil {
		t.Errorf("threshold below 0 should not error: %v", err)
	}
	if len(matches) == 0 {
		t.Error("negative threshold should match everything that survives dedup")
	}
}
