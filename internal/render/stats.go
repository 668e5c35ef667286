package render

import (
	"image"
	"image/color"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats describes the grey-level distribution of an image on a 0..255 scale
type Stats struct {
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"std_dev" yaml:"std_dev"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Median float64 `json:"median" yaml:"median"`
	P99    float64 `json:"p99" yaml:"p99"`
}

// Intensity computes luminance statistics over every pixel.
func Intensity(img image.Image) Stats {
	b := img.Bounds()
	if b.Empty() {
		return Stats{}
	}

	values := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			values = append(values, float64(g.Y))
		}
	}

	mean, std := stat.MeanStdDev(values, nil)
	sort.Float64s(values)

	return Stats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Median: stat.Quantile(0.5, stat.Empirical, values, nil),
		P99:    stat.Quantile(0.99, stat.Empirical, values, nil),
	}
}
