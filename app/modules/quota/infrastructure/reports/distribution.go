package quotareports

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Bucket counts the sheets whose total falls in [Low, High).
type Bucket struct {
	Low   float64
	High  float64
	Count int
}

// Histogram groups totals into buckets of the given width, starting at zero.
func Histogram(totals []float64, width float64) []Bucket {
	if len(totals) == 0 || width <= 0 {
		return nil
	}
	maxTotal := 0.0
	for _, t := range totals {
		maxTotal = math.Max(maxTotal, t)
	}
	n := int(math.Floor(maxTotal/width)) + 1
	buckets := make([]Bucket, n)
	for i := range buckets {
		buckets[i].Low = float64(i) * width
		buckets[i].High = float64(i+1) * width
	}
	for _, t := range totals {
		i := int(math.Floor(math.Max(t, 0) / width))
		buckets[i].Count++
	}
	return buckets
}

// DistributionChart renders a PNG bar chart of a contest's score distribution.
func DistributionChart(title string, totals []float64, width float64) ([]byte, error) {
	buckets := Histogram(totals, width)
	if len(buckets) == 0 {
		// go-chart refuses to render without bars
		buckets = []Bucket{{Low: 0, High: math.Max(width, 1)}}
	}

	bars := make([]chart.Value, 0, len(buckets))
	for _, b := range buckets {
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%g", b.Low),
			Value: float64(b.Count),
			Style: chart.Style{
				FillColor:   drawing.ColorFromHex("3b6ea5"),
				StrokeColor: drawing.ColorFromHex("2a4f78"),
				StrokeWidth: 1,
			},
		})
	}

	graph := chart.BarChart{
		Title:      title,
		Width:      max(400, 40*len(bars)+120),
		Height:     400,
		BarWidth:   30,
		BarSpacing: 10,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount(buckets))},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer([]byte{})
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("failed to render distribution chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func maxCount(buckets []Bucket) int {
	m := 1
	for _, b := range buckets {
		m = max(m, b.Count)
	}
	return m
}
