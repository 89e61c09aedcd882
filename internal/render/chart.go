package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/kjstillabower/fred-dashboard-service/internal/models"
	"github.com/kjstillabower/fred-dashboard-service/internal/series"
)

// ErrInsufficientData is returned when a series has fewer than two dated values to draw.
var ErrInsufficientData = errors.New("not enough data points to draw a chart")

// ErrUnsupportedChartFormat is returned by ParseChartFormat for anything but png or svg.
var ErrUnsupportedChartFormat = errors.New("unsupported chart format")

// ChartFormat is an image encoding supported by the chart renderer.
type ChartFormat string

const (
	ChartPNG ChartFormat = "png"
	ChartSVG ChartFormat = "svg"
)

// ParseChartFormat maps a query value to a ChartFormat. Empty means PNG.
func ParseChartFormat(s string) (ChartFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return ChartPNG, nil
	case "svg":
		return ChartSVG, nil
	}
	return "", fmt.Errorf("%w %q (use png, svg)", ErrUnsupportedChartFormat, s)
}

// ContentType returns the HTTP content type for f.
func (f ChartFormat) ContentType() string {
	if f == ChartSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f ChartFormat) provider() chart.RendererProvider {
	if f == ChartSVG {
		return chart.SVG
	}
	return chart.PNG
}

// ChartRenderer draws line charts of observation series.
type ChartRenderer struct {
	Width  int
	Height int
}

// NewChartRenderer returns a renderer with the given pixel size; non-positive values use 1024x400.
func NewChartRenderer(width, height int) ChartRenderer {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 400
	}
	return ChartRenderer{Width: width, Height: height}
}

// Render draws s as a date/value line chart. Missing values break the line.
func (r ChartRenderer) Render(w io.Writer, format ChartFormat, title, units string, s models.ObservationSeries) error {
	segments := series.Segments(s)
	lines, first, last, minY, maxY := timeSeries(segments)
	if lines == nil || !first.Before(last) {
		return ErrInsufficientData
	}

	pad := (maxY - minY) * 0.05
	if pad == 0 {
		pad = math.Max(math.Abs(maxY)*0.05, 1)
	}

	ch := chart.Chart{
		Title:      title,
		Width:      r.Width,
		Height:     r.Height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat(models.DateLayout),
		},
		YAxis: chart.YAxis{
			Name:  units,
			Range: &chart.ContinuousRange{Min: minY - pad, Max: maxY + pad},
		},
		Series: lines,
	}
	if err := ch.Render(format.provider(), w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// timeSeries builds one chart series per segment. Single-point segments are drawn as a dot.
func timeSeries(segments []series.Segment) (lines []chart.Series, first, last time.Time, minY, maxY float64) {
	minY, maxY = math.MaxFloat64, -math.MaxFloat64
	for _, seg := range segments {
		style := chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2}
		xs, ys := seg.Dates, seg.Values
		if len(xs) == 1 {
			style = chart.Style{StrokeWidth: chart.Disabled, DotColor: chart.ColorBlue, DotWidth: 3}
			xs = []time.Time{xs[0], xs[0]}
			ys = []float64{ys[0], ys[0]}
		}
		for _, v := range seg.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
		if first.IsZero() || seg.Dates[0].Before(first) {
			first = seg.Dates[0]
		}
		if end := seg.Dates[len(seg.Dates)-1]; end.After(last) {
			last = end
		}
		lines = append(lines, chart.TimeSeries{XValues: xs, YValues: ys, Style: style})
	}
	return lines, first, last, minY, maxY
}
