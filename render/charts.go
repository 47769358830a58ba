package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// DefaultBins is the histogram bin count used when none is configured
const DefaultBins = 20

// LineChart is a single time series drawn as a line
type LineChart struct {
	Title  string
	XLabel string
	YLabel string

	T       []time.Time
	Y       []float64
	Markers bool
	Color   color.Color
}

// BarChart is one bar per label with its value written above the bar
type BarChart struct {
	Title  string
	XLabel string
	YLabel string

	Labels []string
	Values []float64
	Color  color.Color
	// Precision of the value labels, negative uses the smallest exact representation
	Precision int
}

// HistogramChart bins the values and optionally marks their mean with a vertical line
type HistogramChart struct {
	Title  string
	XLabel string
	YLabel string

	Values   []float64
	Bins     int
	ShowMean bool
	Color    color.Color
}

// Line draws a line chart
func Line(path string, c LineChart) error {
	if len(c.T) == 0 {
		return ErrNoData
	}
	if len(c.T) != len(c.Y) {
		return fmt.Errorf("line has %d timestamps and %d values, %w", len(c.T), len(c.Y), ErrLenMismatch)
	}
	lineColor := c.Color
	if lineColor == nil {
		lineColor = forecastColor
	}

	p := newTimePlot(c.Title, c.XLabel, c.YLabel, c.T)
	xys := timeXYs(c.T, c.Y)
	if c.Markers {
		line, points, err := plotter.NewLinePoints(xys)
		if err != nil {
			return fmt.Errorf("unable to plot line, %w", err)
		}
		line.LineStyle.Color = lineColor
		points.GlyphStyle.Color = lineColor
		points.GlyphStyle.Shape = draw.CircleGlyph{}
		points.GlyphStyle.Radius = vg.Points(2)
		p.Add(line, points)
	} else {
		line, err := lineOf(c.T, c.Y, lineColor)
		if err != nil {
			return fmt.Errorf("unable to plot line, %w", err)
		}
		p.Add(line)
	}
	return save(p, path)
}

// Bar draws a bar chart with the value of each bar written above it
func Bar(path string, c BarChart) error {
	if len(c.Labels) == 0 {
		return ErrNoData
	}
	if len(c.Labels) != len(c.Values) {
		return fmt.Errorf("bar has %d labels and %d values, %w", len(c.Labels), len(c.Values), ErrLenMismatch)
	}

	values := make(plotter.Values, len(c.Values))
	copy(values, c.Values)
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return fmt.Errorf("unable to plot bars, %w", err)
	}
	bars.Color = c.Color
	if bars.Color == nil {
		bars.Color = forecastColor
	}
	bars.LineStyle.Width = 0

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Y.Min = math.Min(0, floats.Min(values))
	p.Add(plotter.NewGrid(), bars)
	p.NominalX(c.Labels...)

	valueLabels := plotter.XYLabels{
		XYs:    make(plotter.XYs, len(values)),
		Labels: make([]string, len(values)),
	}
	for i, v := range values {
		valueLabels.XYs[i] = plotter.XY{X: float64(i), Y: v}
		valueLabels.Labels[i] = strconv.FormatFloat(v, 'f', c.Precision, 64)
	}
	labels, err := plotter.NewLabels(valueLabels)
	if err != nil {
		return fmt.Errorf("unable to plot bar labels, %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
	}
	labels.Offset = vg.Point{Y: vg.Points(3)}
	p.Add(labels)
	// leave headroom for the labels above the tallest bar
	p.Y.Max = math.Max(p.Y.Max, floats.Max(values)*1.1)

	return save(p, path)
}

// Histogram draws a histogram of the non NaN values
func Histogram(path string, c HistogramChart) error {
	values := make(plotter.Values, 0, len(c.Values))
	for _, v := range c.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
	}
	if len(values) == 0 {
		return ErrNoData
	}
	bins := c.Bins
	if bins <= 0 {
		bins = DefaultBins
	}

	hist, err := plotter.NewHist(values, bins)
	if err != nil {
		return fmt.Errorf("unable to plot histogram, %w", err)
	}
	hist.FillColor = c.Color
	if hist.FillColor == nil {
		hist.FillColor = bandColor
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid(), hist)

	if c.ShowMean {
		var maxWeight float64
		for _, bin := range hist.Bins {
			maxWeight = math.Max(maxWeight, bin.Weight)
		}
		mean := stat.Mean(values, nil)
		meanLine, err := plotter.NewLine(plotter.XYs{{X: mean, Y: 0}, {X: mean, Y: maxWeight}})
		if err != nil {
			return fmt.Errorf("unable to plot mean marker, %w", err)
		}
		meanLine.LineStyle.Color = meanColor
		meanLine.LineStyle.Width = vg.Points(1.5)
		meanLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(meanLine)
		p.Legend.Add(fmt.Sprintf("Mean: %.2f", mean), meanLine)
		p.Legend.Top = true
	}
	return save(p, path)
}
