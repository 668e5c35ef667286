package render

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/neuropathx/neuropathx/internal/viewport"
)

func uniform(w, h int, y uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = y
	}
	return img
}

func grey(img image.Image, x, y int) uint8 {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func TestApplyIdentity(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range src.Pix {
		src.Pix[i] = uint8(i * 20)
	}

	out := Apply(src, viewport.Default())
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 3 {
		t.Fatalf("Unexpected bounds %v", out.Bounds())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			if grey(out, x, y) != grey(src, x, y) {
				t.Errorf("Pixel (%d,%d): expected %d, got %d", x, y, grey(src, x, y), grey(out, x, y))
			}
		}
	}
}

func TestApplyPan(t *testing.T) {
	v := viewport.Default()
	v.PanX = 10

	out := Apply(uniform(20, 20, 255), v)
	if grey(out, 5, 5) != 0 {
		t.Errorf("Expected uncovered pixel to be black, got %d", grey(out, 5, 5))
	}
	if grey(out, 15, 5) != 255 {
		t.Errorf("Expected panned pixel to be white, got %d", grey(out, 15, 5))
	}
}

func TestApplyZoomOut(t *testing.T) {
	v := viewport.Default()
	v.Scale = 0.5

	out := Apply(uniform(40, 40, 255), v)
	if grey(out, 1, 1) != 0 {
		t.Errorf("Expected corner outside the shrunk image to be black, got %d", grey(out, 1, 1))
	}
	if grey(out, 20, 20) != 255 {
		t.Errorf("Expected centre to stay white, got %d", grey(out, 20, 20))
	}
}

func TestApplyLevels(t *testing.T) {
	tests := []struct {
		name       string
		brightness float64
		contrast   float64
		in         uint8
		expected   uint8
	}{
		{"brighter", 2, 1, 100, 200},
		{"brightness saturates", 3, 1, 200, 255},
		{"darker", 0.5, 1, 200, 100},
		{"low contrast", 1, 0.2, 255, 153},
		{"high contrast", 1, 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viewport.Default()
			v.Brightness = tt.brightness
			v.Contrast = tt.contrast

			out := Apply(uniform(2, 2, tt.in), v)
			if got := grey(out, 0, 0); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestDecodeAndWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, uniform(3, 2, 7)); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("Unexpected bounds %v", img.Bounds())
	}

	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Expected decode error")
	}
}

func TestIntensity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{0, 100, 200, 255})

	s := Intensity(img)
	if s.Min != 0 || s.Max != 255 {
		t.Errorf("Expected range 0..255, got %v..%v", s.Min, s.Max)
	}
	if math.Abs(s.Mean-138.75) > 1e-9 {
		t.Errorf("Expected mean 138.75, got %v", s.Mean)
	}
	if s.StdDev <= 0 {
		t.Errorf("Expected positive spread, got %v", s.StdDev)
	}
	if s.Median < s.Min || s.Median > s.Max || s.P99 != 255 {
		t.Errorf("Unexpected quantiles median=%v p99=%v", s.Median, s.P99)
	}

	if (Intensity(image.NewGray(image.Rectangle{})) != Stats{}) {
		t.Error("Expected zero stats for an empty image")
	}
}

// headerOnlyPNG is a PNG signature and IHDR chunk declaring an 8-bit
// grayscale image of w by h with no pixel data behind it.
func headerOnlyPNG(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth

	chunk := append([]byte("IHDR"), ihdr...)
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecodeRejectsHugeDimensions(t *testing.T) {
	tests := []struct {
		name string
		w, h uint32
	}{
		{"square", 20000, 20000},
		{"wide", 1 << 24, 8},
		{"just over", 8193, 8192},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Decode(headerOnlyPNG(tt.w, tt.h))
			if !errors.Is(err, ErrTooManyPixels) {
				t.Errorf("Expected ErrTooManyPixels, got %v", err)
			}
			if img != nil {
				t.Error("Expected no image")
			}
		})
	}
}
