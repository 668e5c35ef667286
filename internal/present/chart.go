package present

import (
	"errors"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmptyBreakdown is returned when there is nothing to chart
var ErrEmptyBreakdown = errors.New("no class scores above the display floor")

var (
	predictedColor = drawing.ColorFromHex("1976d2")
	otherColor     = drawing.ColorFromHex("dddddd")
)

// WriteChart renders the breakdown as a PNG bar chart, predicted class highlighted.
func (m DisplayModel) WriteChart(w io.Writer) error {
	if len(m.Breakdown) == 0 {
		return ErrEmptyBreakdown
	}

	bars := make([]chart.Value, 0, len(m.Breakdown))
	for _, e := range m.Breakdown {
		fill := otherColor
		if e.Predicted {
			fill = predictedColor
		}
		bars = append(bars, chart.Value{
			Label: e.Label,
			Value: e.Confidence * 100,
			Style: chart.Style{
				FillColor:   fill,
				StrokeColor: fill,
				StrokeWidth: 1,
			},
		})
	}

	bc := chart.BarChart{
		Title:      "Model Output Scores (%)",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Width:      640,
		Height:     320,
		BarWidth:   60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}
	return bc.Render(chart.PNG, w)
}
