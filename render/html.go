package render

import (
	"fmt"
	"io"
	"math"
	"time"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is the echarts placeholder for a gap in a line
const missing = "-"

func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: missing}
	}
	return opts.LineData{Value: v}
}

func xLabels(t []time.Time) []string {
	format := timeFormat(t)
	labels := make([]string, len(t))
	for i, ts := range t {
		labels[i] = ts.Format(format)
	}
	return labels
}

func newLine(title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(
			opts.Tooltip{
				Show:    opts.Bool(true),
				Trigger: "axis",
			},
		),
		charts.WithDataZoomOpts(
			opts.DataZoom{
				Type:  "slider",
				Start: 0,
				End:   100,
			},
		),
	)
	return line
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. Each
// series in y must have the same length as t. NaN values are left as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) (*charts.Line, error) {
	if len(seriesName) != len(y) {
		return nil, fmt.Errorf("%d series names for %d series, %w", len(seriesName), len(y), ErrLenMismatch)
	}
	line := newLine(title)
	line.SetXAxis(xLabels(t))
	for i, series := range y {
		if len(series) != len(t) {
			return nil, fmt.Errorf("series %s has %d values for %d timestamps, %w", seriesName[i], len(series), len(t), ErrLenMismatch)
		}
		lineData := make([]opts.LineData, 0, len(series))
		for _, v := range series {
			lineData = append(lineData, lineValue(v))
		}
		line.AddSeries(seriesName[i], lineData)
	}
	return line, nil
}

// LineForecaster generates an echart line chart of the forecast results plotting the history
// along with the forecasted, upper and lower values. History points are matched to the results
// by timestamp.
func LineForecaster(history *timedataset.TimeDataset, res *forecaster.Results) (*charts.Line, error) {
	if err := validResults(res); err != nil {
		return nil, err
	}

	actual := make(map[int64]float64, history.Len())
	for i := 0; i < history.Len(); i++ {
		actual[history.T[i].Unix()] = history.Y[i]
	}

	lineDataActual := make([]opts.LineData, 0, res.Len())
	lineDataForecast := make([]opts.LineData, 0, res.Len())
	lineDataUpper := make([]opts.LineData, 0, res.Len())
	lineDataLower := make([]opts.LineData, 0, res.Len())
	for i := 0; i < res.Len(); i++ {
		y, exists := actual[res.T[i].Unix()]
		if !exists {
			y = math.NaN()
		}
		lineDataActual = append(lineDataActual, lineValue(y))
		lineDataForecast = append(lineDataForecast, lineValue(res.Forecast[i]))
		lineDataUpper = append(lineDataUpper, lineValue(res.Upper[i]))
		lineDataLower = append(lineDataLower, lineValue(res.Lower[i]))
	}

	line := newLine("Forecast Fit")
	line.SetXAxis(xLabels(res.T)).
		AddSeries("Actual", lineDataActual).
		AddSeries("Forecast", lineDataForecast).
		AddSeries("Upper", lineDataUpper).
		AddSeries("Lower", lineDataLower)
	return line, nil
}

// ForecastHTML writes an interactive page with the forecast chart followed by one chart of every
// component in trend, seasonality and holiday order
func ForecastHTML(w io.Writer, history *timedataset.TimeDataset, res *forecaster.Results, comps map[string][]float64) error {
	fit, err := LineForecaster(history, res)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.SetPageTitle("Forecast")
	page.AddCharts(fit)

	names := forecaster.ComponentNames(comps)
	if len(names) > 0 {
		y := make([][]float64, 0, len(names))
		for _, name := range names {
			y = append(y, comps[name])
		}
		compLine, err := LineTSeries("Components", names, res.T, y)
		if err != nil {
			return err
		}
		page.AddCharts(compLine)
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("unable to render forecast page, %w", err)
	}
	return nil
}
