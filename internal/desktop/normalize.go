package desktop

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"
)

// Default limits for frames shipped to the cognition service. Oversized
// captures are resized and re-encoded as JPEG until they fit.
const (
	DefaultFrameMaxSide  = 2000
	DefaultFrameMaxBytes = 5 * 1024 * 1024
)

// FrameOptions overrides normalization limits.
type FrameOptions struct {
	MaxSide  int
	MaxBytes int
}

// Frame is a normalized screenshot ready for transport.
type Frame struct {
	Buffer      []byte
	ContentType string
	Width       int
	Height      int
	Resized     bool
}

// NormalizeFrame validates the capture and, when it exceeds the byte or
// dimension limits, walks a quality/size grid until a variant fits.
// Frames already within limits are passed through untouched.
func NormalizeFrame(data []byte, opts *FrameOptions) (*Frame, error) {
	maxSide := DefaultFrameMaxSide
	maxBytes := DefaultFrameMaxBytes
	if opts != nil {
		if opts.MaxSide > 0 {
			maxSide = opts.MaxSide
		}
		if opts.MaxBytes > 0 {
			maxBytes = opts.MaxBytes
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if len(data) <= maxBytes && width <= maxSide && height <= maxSide {
		return &Frame{
			Buffer:      data,
			ContentType: "image/" + format,
			Width:       width,
			Height:      height,
		}, nil
	}

	qualities := []int{85, 70, 55, 40}
	sides := []int{maxSide, 1600, 1200, 800}
	for _, side := range sides {
		if side > maxSide {
			continue
		}
		for _, quality := range qualities {
			frame, err := shrinkFrame(img, side, quality)
			if err != nil {
				continue
			}
			if len(frame.Buffer) <= maxBytes {
				frame.Resized = true
				return frame, nil
			}
		}
	}
	return nil, fmt.Errorf("frame could not be reduced below %d bytes", maxBytes)
}

func shrinkFrame(img image.Image, maxSide, quality int) (*Frame, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	newWidth, newHeight := width, height
	if width > maxSide || height > maxSide {
		if width > height {
			newWidth = maxSide
			newHeight = height * maxSide / width
		} else {
			newHeight = maxSide
			newWidth = width * maxSide / height
		}
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	scaled := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return &Frame{
		Buffer:      buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       newWidth,
		Height:      newHeight,
	}, nil
}
