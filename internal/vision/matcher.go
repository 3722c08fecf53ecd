// Package vision locates reference images inside captured frames. The
// matcher computes a zero-mean normalized cross-correlation surface over
// every template alignment, the same scoring OpenCV calls TM_CCOEFF_NORMED,
// so confidence thresholds carry over from tooling built around that scale.
package vision

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"
	"os"
	"sort"
)

// Match is a located occurrence of a template inside a frame.
type Match struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"w"`
	Height     int     `json:"h"`
	CenterX    int     `json:"center_x"`
	CenterY    int     `json:"center_y"`
	Confidence float64 `json:"confidence"`
}

// Matcher finds template occurrences in frames. It holds no state; every
// call is independent and touches nothing but the template file.
type Matcher struct{}

// NewMatcher creates a template matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// FindTemplate decodes frame, loads the template image from templatePath,
// and returns every non-overlapping occurrence scoring at least
// confidence, sorted by descending confidence (ties keep scan order).
// Thresholds outside [0, 1] are accepted as-is; the comparison stays
// well-defined. A template larger than the frame yields no matches.
func (m *Matcher) FindTemplate(frame []byte, templatePath string, confidence float64) ([]Match, error) {
	frameImg, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("invalid frame data: %w", err)
	}
	templateImg, err := loadImage(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load template from %s: %w", templatePath, err)
	}

	fg := newGrid(frameImg)
	tg := newGrid(templateImg)
	if tg.w == 0 || tg.h == 0 {
		return nil, fmt.Errorf("template %s is empty", templatePath)
	}

	surface := correlate(fg, tg)

	// Row-major scan keeps the dedup deterministic: a candidate is dropped
	// when an accepted match sits within half a template of it.
	var matches []Match
	for y := range surface {
		for x, score := range surface[y] {
			if score < confidence {
				continue
			}
			if nearAccepted(matches, x, y, tg.w, tg.h) {
				continue
			}
			matches = append(matches, Match{
				X:          x,
				Y:          y,
				Width:      tg.w,
				Height:     tg.h,
				CenterX:    x + tg.w/2,
				CenterY:    y + tg.h/2,
				Confidence: score,
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches, nil
}

func nearAccepted(matches []Match, x, y, w, h int) bool {
	for _, m := range matches {
		if abs(x-m.X) < w/2 && abs(y-m.Y) < h/2 {
			return true
		}
	}
	return false
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// grid is a grayscale pixel grid in [0, 255] floats.
type grid struct {
	w, h int
	pix  []float64
}

func newGrid(img image.Image) grid {
	bounds := img.Bounds()
	g := grid{w: bounds.Dx(), h: bounds.Dy()}
	g.pix = make([]float64, g.w*g.h)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, gr, b, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled to 8-bit.
			g.pix[i] = (0.299*float64(r) + 0.587*float64(gr) + 0.114*float64(b)) / 257.0
			i++
		}
	}
	return g
}

func (g grid) at(x, y int) float64 {
	return g.pix[y*g.w+x]
}

// correlate computes the zero-mean NCC score for every template alignment,
// producing a (fh-th+1) x (fw-tw+1) surface. Alignments with zero variance
// on either side score zero.
func correlate(f, t grid) [][]float64 {
	rows := f.h - t.h + 1
	cols := f.w - t.w + 1
	if rows <= 0 || cols <= 0 {
		return nil
	}

	tMean := 0.0
	for _, v := range t.pix {
		tMean += v
	}
	tMean /= float64(len(t.pix))
	tNorm := 0.0
	tDelta := make([]float64, len(t.pix))
	for i, v := range t.pix {
		tDelta[i] = v - tMean
		tNorm += tDelta[i] * tDelta[i]
	}

	surface := make([][]float64, rows)
	for oy := 0; oy < rows; oy++ {
		surface[oy] = make([]float64, cols)
		for ox := 0; ox < cols; ox++ {
			surface[oy][ox] = scoreAt(f, t, tDelta, tNorm, ox, oy)
		}
	}
	return surface
}

func scoreAt(f, t grid, tDelta []float64, tNorm float64, ox, oy int) float64 {
	fMean := 0.0
	for y := 0; y < t.h; y++ {
		for x := 0; x < t.w; x++ {
			fMean += f.at(ox+x, oy+y)
		}
	}
	fMean /= float64(t.w * t.h)

	num := 0.0
	fNorm := 0.0
	i := 0
	for y := 0; y < t.h; y++ {
		for x := 0; x < t.w; x++ {
			fd := f.at(ox+x, oy+y) - fMean
			num += fd * tDelta[i]
			fNorm += fd * fd
			i++
		}
	}

	denom := math.Sqrt(fNorm * tNorm)
	if denom == 0 {
		return 0
	}
	return num / denom
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
