// Package render draws forecasts, sweeps and exploratory charts to PNG files and writes console
// tables of the results.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"time"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/timedataset"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	ErrNoData      = errors.New("no data to render")
	ErrLenMismatch = errors.New("series have different lengths")
)

const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "01-02 15h"

	defaultWidth  = 10 * vg.Inch
	defaultHeight = 6 * vg.Inch
	panelHeight   = 2.5 * vg.Inch
)

var (
	historyColor  = color.Black
	forecastColor = color.RGBA{R: 0x00, G: 0x72, B: 0xb2, A: 0xff}
	bandColor     = color.RGBA{R: 0x00, G: 0x72, B: 0xb2, A: 0x40}
	meanColor     = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// timeXYs pairs the timestamps as unix seconds with the values skipping NaN and infinite values
func timeXYs(t []time.Time, y []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(t))
	for i := range t {
		if i >= len(y) || math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(t[i].Unix()), Y: y[i]})
	}
	return xys
}

// timeFormat picks a tick format that resolves the sampling interval of t
func timeFormat(t []time.Time) string {
	if len(t) > 1 && t[1].Sub(t[0]) < 24*time.Hour {
		return DateTimeFormat
	}
	return DateFormat
}

func newTimePlot(title, xLabel, yLabel string, t []time.Time) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat(t)}
	p.Add(plotter.NewGrid())
	return p
}

func historyScatter(history *timedataset.TimeDataset) (*plotter.Scatter, error) {
	scatter, err := plotter.NewScatter(timeXYs(history.T, history.Y))
	if err != nil {
		return nil, fmt.Errorf("unable to plot history, %w", err)
	}
	scatter.GlyphStyle.Color = historyColor
	scatter.GlyphStyle.Radius = vg.Points(1.5)
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	return scatter, nil
}

func lineOf(t []time.Time, y []float64, c color.Color) (*plotter.Line, error) {
	line, err := plotter.NewLine(timeXYs(t, y))
	if err != nil {
		return nil, err
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.5)
	return line, nil
}

// band builds the polygon between lower and upper
func band(t []time.Time, lower, upper []float64) (*plotter.Polygon, error) {
	ring := make(plotter.XYs, 0, 2*len(t))
	ring = append(ring, timeXYs(t, upper)...)
	lowerXYs := timeXYs(t, lower)
	for i := len(lowerXYs) - 1; i >= 0; i-- {
		ring = append(ring, lowerXYs[i])
	}
	poly, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, err
	}
	poly.Color = bandColor
	poly.LineStyle.Width = 0
	return poly, nil
}

func save(p *plot.Plot, path string) error {
	if err := p.Save(defaultWidth, defaultHeight, path); err != nil {
		return fmt.Errorf("unable to save %s, %w", path, err)
	}
	return nil
}

func validResults(res *forecaster.Results) error {
	if res.Len() == 0 {
		return ErrNoData
	}
	if len(res.Forecast) != res.Len() || len(res.Lower) != res.Len() || len(res.Upper) != res.Len() {
		return fmt.Errorf("results have %d timestamps, %w", res.Len(), ErrLenMismatch)
	}
	return nil
}

// Forecast draws the history as dots, the forecast as a line and the uncertainty band as a
// shaded area
func Forecast(path, title, xLabel, yLabel string, history *timedataset.TimeDataset, res *forecaster.Results) error {
	if err := validResults(res); err != nil {
		return err
	}
	p := newTimePlot(title, xLabel, yLabel, res.T)

	poly, err := band(res.T, res.Lower, res.Upper)
	if err != nil {
		return fmt.Errorf("unable to plot uncertainty band, %w", err)
	}
	line, err := lineOf(res.T, res.Forecast, forecastColor)
	if err != nil {
		return fmt.Errorf("unable to plot forecast, %w", err)
	}
	p.Add(poly, line)
	p.Legend.Add("Forecast", line)
	p.Legend.Add("Uncertainty", poly)

	if history.Len() > 0 {
		scatter, err := historyScatter(history)
		if err != nil {
			return err
		}
		p.Add(scatter)
		p.Legend.Add("History", scatter)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return save(p, path)
}

// Components draws one stacked panel per component ordered as trend, seasonal terms and holidays
func Components(path string, res *forecaster.Results, components map[string][]float64) error {
	if err := validResults(res); err != nil {
		return err
	}
	names := forecaster.ComponentNames(components)
	if len(names) == 0 {
		return ErrNoData
	}

	plots := make([][]*plot.Plot, 0, len(names))
	for _, name := range names {
		values := components[name]
		if len(values) != res.Len() {
			return fmt.Errorf("component %s has %d values for %d timestamps, %w", name, len(values), res.Len(), ErrLenMismatch)
		}
		p := newTimePlot("", "", name, res.T)
		line, err := lineOf(res.T, values, forecastColor)
		if err != nil {
			return fmt.Errorf("unable to plot component %s, %w", name, err)
		}
		p.Add(line)
		plots = append(plots, []*plot.Plot{p})
	}

	img := vgimg.New(defaultWidth, panelHeight*vg.Length(len(plots)))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      2 * vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(8),
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		plots[j][0].Draw(canvases[j][0])
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("unable to write %s, %w", path, err)
	}
	return file.Close()
}

// Sweep draws the history as dots and one forecast line per successful smoothness run with the
// legend in sweep order
func Sweep(path string, history *timedataset.TimeDataset, sweep *forecaster.SweepResult) error {
	if sweep.Len() == 0 {
		return ErrNoData
	}
	var t []time.Time
	for _, run := range sweep.Runs() {
		if run.Err == nil && run.Results.Len() > 0 {
			t = run.Results.T
			break
		}
	}
	if t == nil {
		return fmt.Errorf("every sweep run failed, %w", ErrNoData)
	}

	p := newTimePlot("Changepoint prior scale comparison", "Date", "Value", t)
	if history.Len() > 0 {
		scatter, err := historyScatter(history)
		if err != nil {
			return err
		}
		p.Add(scatter)
		p.Legend.Add("History", scatter)
	}
	for i, run := range sweep.Runs() {
		if run.Err != nil || run.Results.Len() == 0 {
			continue
		}
		line, err := lineOf(run.Results.T, run.Results.Forecast, plotutil.Color(i))
		if err != nil {
			return fmt.Errorf("unable to plot smoothness %v, %w", run.Smoothness, err)
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("CPS = %v", run.Smoothness), line)
	}
	p.Legend.Top = true
	p.Legend.Left = true
	return save(p, path)
}
