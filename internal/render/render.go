// Package render applies a viewport to image pixels the way a browser
// applies the equivalent CSS transform and filter, and computes intensity
// statistics for a loaded scan.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/neuropathx/neuropathx/internal/viewport"
)

// MaxPixels bounds the images Decode will expand into memory (64 MP).
const MaxPixels = 64 << 20

// ErrTooManyPixels is returned for images whose header declares more than MaxPixels
var ErrTooManyPixels = errors.New("image dimensions too large to render")

// Decode reads a JPEG or PNG image. The header is checked against MaxPixels
// before any pixel data is decoded.
func Decode(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d (max %d pixels)", ErrTooManyPixels, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Apply draws src onto a canvas of the same size with v applied. Scaling is
// about the image centre, then the pan offset is added, matching
// "translate(pan) scale(s)" with a centred transform origin. Uncovered canvas
// is black.
func Apply(src image.Image, v viewport.Viewport) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	cx := float64(b.Dx()) / 2
	cy := float64(b.Dy()) / 2
	s := v.Scale

	// Maps source coordinates onto the canvas
	m := f64.Aff3{
		s, 0, cx + v.PanX - s*(cx+float64(b.Min.X)),
		0, s, cy + v.PanY - s*(cy+float64(b.Min.Y)),
	}
	xdraw.ApproxBiLinear.Transform(dst, m, src, b, xdraw.Over, nil)

	adjust(dst, v.Brightness, v.Contrast)
	return dst
}

// adjust applies brightness then contrast in place, per channel on the
// 0..1 scale: brightness multiplies, contrast scales distance from mid-grey.
func adjust(img *image.RGBA, brightness, contrast float64) {
	if brightness == 1 && contrast == 1 {
		return
	}

	var lut [256]uint8
	for i := range lut {
		x := float64(i) / 255
		x *= brightness
		x = (x-0.5)*contrast + 0.5
		lut[i] = uint8(math.Round(math.Max(0, math.Min(1, x)) * 255))
	}

	for i := 0; i+3 < len(img.Pix); i += 4 {
		img.Pix[i] = lut[img.Pix[i]]
		img.Pix[i+1] = lut[img.Pix[i+1]]
		img.Pix[i+2] = lut[img.Pix[i+2]]
	}
}

func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}
