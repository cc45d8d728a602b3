package report

import (
	"io"

	"github.com/dkorittki/imgprof/internal/pkg/service/profiler"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	chartWidth  = 1024
	chartHeight = 512
)

// ErrNoData indicates a view without any successful load to chart.
var ErrNoData = errors.New("no data to chart")

// WriteChart renders the histogram of v as PNG.
func WriteChart(w io.Writer, v profiler.View) error {
	if v.Compared() {
		return writePairChart(w, v)
	}
	return writeBarChart(w, v)
}

func writeBarChart(w io.Writer, v profiler.View) error {
	if len(v.Histogram) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, len(v.Histogram))
	maxCount := 0
	for i, b := range v.Histogram {
		bars[i] = chart.Value{Label: b.Range, Value: float64(b.Count)}
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}

	bc := chart.BarChart{
		Title:      "Load time distribution (" + v.BaseHost + ")",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   60,
		YAxis: chart.YAxis{
			Name:  "images",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		Bars: bars,
	}

	return errors.Wrap(bc.Render(chart.PNG, w), "cannot render chart")
}

func writePairChart(w io.Writer, v profiler.View) error {
	n := len(v.PairHistogram)
	if n == 0 {
		return ErrNoData
	}

	xs := make([]float64, n)
	base := make([]float64, n)
	alt := make([]float64, n)
	ticks := make([]chart.Tick, 0, n+1)
	maxCount := 0

	for i, b := range v.PairHistogram {
		x := float64(i + 1)
		xs[i] = x
		base[i] = float64(b.BaseCount)
		alt[i] = float64(b.CompareCount)
		ticks = append(ticks, chart.Tick{Value: x, Label: b.Range})

		if b.BaseCount > maxCount {
			maxCount = b.BaseCount
		}
		if b.CompareCount > maxCount {
			maxCount = b.CompareCount
		}
	}

	// a single bucket still needs a non-zero x range
	minR, maxR := 0.5, float64(n)+0.5
	if n == 1 {
		xs = append(xs, 2)
		base = append(base, base[0])
		alt = append(alt, alt[0])
		ticks = append(ticks, chart.Tick{Value: 2, Label: ""})
		maxR = 2.0
	}

	ch := chart.Chart{
		Title:      "Load time distribution",
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 12, Bottom: 28}},
		Width:      chartWidth,
		Height:     chartHeight,
		XAxis: chart.XAxis{
			Name:  "ms",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: minR, Max: maxR},
		},
		YAxis: chart.YAxis{
			Name:  "images",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(maxCount)},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    v.BaseHost,
				XValues: xs,
				YValues: base,
				Style:   seriesStyle(chart.ColorBlue),
			},
			chart.ContinuousSeries{
				Name:    v.CompareHost,
				XValues: xs,
				YValues: alt,
				Style:   seriesStyle(chart.ColorRed),
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	return errors.Wrap(ch.Render(chart.PNG, w), "cannot render chart")
}

func seriesStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    4,
	}
}
