package forecaster

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-demandcast/forecast/options"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func demandSeries(t *testing.T, n int) *timedataset.TimeDataset {
	t.Helper()
	td, err := timedataset.Generate(timedataset.DemandSpec(testStart, n), timedataset.NewSource(timedataset.DefaultSeed))
	require.NoError(t, err)
	return td
}

func productionSeries(t *testing.T, n int) *timedataset.TimeDataset {
	t.Helper()
	td, err := timedataset.Generate(timedataset.ProductionSpec(testStart, n), timedataset.NewSource(timedataset.DefaultSeed))
	require.NoError(t, err)
	return td
}

func fitDemand(t *testing.T, opt *Options) (*Forecaster, *timedataset.TimeDataset) {
	t.Helper()
	td := demandSeries(t, 100)
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td.T, td.Y))
	return f, td
}

func assertBandOrdered(t *testing.T, res *Results) {
	t.Helper()
	for i := range res.T {
		assert.LessOrEqual(t, res.Lower[i], res.Forecast[i], "lower at %d", i)
		assert.LessOrEqual(t, res.Forecast[i], res.Upper[i], "upper at %d", i)
	}
}

func TestNewValidation(t *testing.T) {
	testData := map[string]struct {
		update func(o *Options)
		param  string
	}{
		"zero smoothness":     {func(o *Options) { o.Smoothness = 0 }, "smoothness"},
		"negative smoothness": {func(o *Options) { o.Smoothness = -0.1 }, "smoothness"},
		"nan smoothness":      {func(o *Options) { o.Smoothness = math.NaN() }, "smoothness"},
		"unknown mode":        {func(o *Options) { o.Mode = "exponential" }, "mode"},
		"interval width":      {func(o *Options) { o.IntervalWidth = 1 }, "interval_width"},
		"unknown holidays":    {func(o *Options) { o.Holidays = "xx" }, "holidays"},
		"changepoint range":   {func(o *Options) { o.ChangepointRange = 1.5 }, "changepoint_range"},
		"outlier percentiles": {func(o *Options) {
			o.OutlierOptions = NewOutlierOptions()
			o.OutlierOptions.LowerPercentile = 0.95
		}, "outlier_options.percentiles"},
		"invalid event": {func(o *Options) {
			o.Events = []options.Event{options.NewEvent("shutdown", testStart.Add(time.Hour), testStart)}
		}, "events"},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := NewDefaultOptions()
			td.update(opt)
			_, err := New(opt)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), td.param)
		})
	}

	f, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, NewDefaultOptions(), f.Options())
}

func TestNewCopiesOptions(t *testing.T) {
	opt := NewDefaultOptions()
	f, err := New(opt)
	require.NoError(t, err)

	opt.Smoothness = 0.5
	opt.Weekly = false
	assert.Equal(t, DefaultSmoothness, f.Options().Smoothness)
	assert.True(t, f.Options().Weekly)
}

func TestFitErrors(t *testing.T) {
	testData := map[string]struct {
		t   []time.Time
		y   []float64
		opt *Options
		err error
	}{
		"empty": {
			err: ErrInsufficientData,
		},
		"single point": {
			t:   []time.Time{testStart},
			y:   []float64{1},
			err: ErrInsufficientData,
		},
		"same timestamp": {
			t:   []time.Time{testStart, testStart},
			y:   []float64{1, 2},
			err: ErrInsufficientData,
		},
		"all nan but one": {
			t:   timedataset.GenerateRange(testStart, 3, timedataset.Daily),
			y:   []float64{1, math.NaN(), math.NaN()},
			err: ErrInsufficientData,
		},
		"non monotonic": {
			t:   []time.Time{testStart, testStart.Add(48 * time.Hour), testStart.Add(24 * time.Hour)},
			y:   []float64{1, 2, 3},
			err: timedataset.ErrNonMontonic,
		},
		"multiplicative with zero": {
			t: timedataset.GenerateRange(testStart, 3, timedataset.Daily),
			y: []float64{1, 0, 2},
			opt: func() *Options {
				opt := NewDefaultOptions()
				opt.Mode = ModeMultiplicative
				return opt
			}(),
			err: ErrInvalidConfig,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(td.opt)
			require.NoError(t, err)
			assert.ErrorIs(t, f.Fit(td.t, td.y), td.err)
		})
	}
}

func TestPredictErrors(t *testing.T) {
	f, err := New(nil)
	require.NoError(t, err)
	_, err = f.Predict(10, timedataset.Daily)
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = f.PredictTimes([]time.Time{testStart})
	assert.ErrorIs(t, err, ErrNotFitted)
	_, err = f.Model()
	assert.ErrorIs(t, err, ErrNotFitted)

	f, _ = fitDemand(t, nil)
	_, err = f.Predict(-1, timedataset.Daily)
	require.ErrorIs(t, err, ErrInvalidHorizon)
	assert.Contains(t, err.Error(), "horizon")

	_, err = f.Predict(10, timedataset.Hourly)
	require.ErrorIs(t, err, ErrInvalidHorizon)
	assert.Contains(t, err.Error(), "frequency")
}

func TestForecasterDemand(t *testing.T) {
	opt := NewDefaultOptions()
	opt.Yearly = false
	opt.Daily = false
	f, td := fitDemand(t, opt)
	assert.Equal(t, timedataset.Daily, f.Frequency())
	assert.Greater(t, f.Scores().R2, 0.5)
	assert.Len(t, f.Residuals(), 100)
	assert.Equal(t, td, f.TrainingData())

	res, err := f.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	require.Equal(t, 130, res.Len())
	assert.Equal(t, testStart, res.T[0])
	for i := 1; i < res.Len(); i++ {
		assert.Equal(t, 24*time.Hour, res.T[i].Sub(res.T[i-1]))
	}
	assertBandOrdered(t, res)

	// the weekly wave dominates the noise so the weekly component should swing by tens of units
	comps := Decompose(res)
	assert.Equal(t, []string{ComponentTrend, options.LabelSeasWeekly}, ComponentNames(comps))
	weekly := comps[options.LabelSeasWeekly]
	span := 0.0
	for _, v := range weekly {
		span = math.Max(span, math.Abs(v))
	}
	assert.Greater(t, span, 10.0)
	for i := range res.T {
		assert.InDelta(t, res.Forecast[i], comps[ComponentTrend][i]+weekly[i], 1e-6)
	}

	// trend keeps growing beyond the history
	trend := comps[ComponentTrend]
	assert.Greater(t, trend[129], trend[0])

	hist, err := f.Predict(0, timedataset.Daily)
	require.NoError(t, err)
	assert.Equal(t, td.T, hist.T)
	assert.InDeltaSlice(t, f.FitResults().Forecast, hist.Forecast, 1e-9)
}

func TestForecasterDeterministic(t *testing.T) {
	f1, _ := fitDemand(t, nil)
	f2, _ := fitDemand(t, nil)

	res1, err := f1.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	res2, err := f2.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	assert.Equal(t, res1.Forecast, res2.Forecast)
	assert.Equal(t, res1.Upper, res2.Upper)
}

func TestForecasterProduction(t *testing.T) {
	td := productionSeries(t, 720)
	opt := NewDefaultOptions()
	opt.Yearly = false

	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td.T, td.Y))
	assert.Equal(t, timedataset.Hourly, f.Frequency())

	res, err := f.Predict(48, timedataset.Hourly)
	require.NoError(t, err)
	require.Equal(t, 768, res.Len())
	assert.Equal(t, td.T[719].Add(48*time.Hour), res.T[767])
	assertBandOrdered(t, res)

	comps := res.Components()
	assert.Contains(t, comps, options.LabelSeasDaily)
	assert.Contains(t, comps, options.LabelSeasWeekly)
	assert.NotContains(t, comps, ComponentHolidays)

	daily := comps[options.LabelSeasDaily]
	span := 0.0
	for _, v := range daily {
		span = math.Max(span, math.Abs(v))
	}
	assert.InDelta(t, 10.0, span, 3.0)
}

func TestForecasterMultiplicative(t *testing.T) {
	opt := NewDefaultOptions()
	opt.Mode = ModeMultiplicative
	f, td := fitDemand(t, opt)

	res, err := f.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	assertBandOrdered(t, res)

	comps := res.Components()
	trend := comps[ComponentTrend]
	weekly := comps[options.LabelSeasWeekly]
	for i := range td.T {
		// trend in original units and weekly as a fraction of it
		assert.Greater(t, trend[i], 50.0)
		assert.Less(t, math.Abs(weekly[i]), 1.0)
	}

	eq, err := f.SeriesModelEq()
	require.NoError(t, err)
	assert.Contains(t, eq, "log(y)")
}

func TestForecasterHolidays(t *testing.T) {
	opt := NewDefaultOptions()
	opt.Holidays = options.HolidaysUS
	f, _ := fitDemand(t, opt)

	res, err := f.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	comps := res.Components()
	require.Contains(t, comps, ComponentHolidays)
	assert.Equal(t, ComponentHolidays, ComponentNames(comps)[len(comps)-1])
	assert.Len(t, comps[ComponentHolidays], 130)
}

func TestForecasterOutliers(t *testing.T) {
	td := demandSeries(t, 100)
	y := make([]float64, len(td.Y))
	copy(y, td.Y)
	y[20] = 1000
	y[60] = -500

	opt := NewDefaultOptions()
	opt.OutlierOptions = &OutlierOptions{
		NumPasses:       2,
		LowerPercentile: 0.25,
		UpperPercentile: 0.75,
		TukeyFactor:     3.0,
	}
	f, err := New(opt)
	require.NoError(t, err)
	require.NoError(t, f.Fit(td.T, y))

	res, err := f.Predict(0, timedataset.Daily)
	require.NoError(t, err)

	// the spikes are excluded from the fit so the forecast stays near the regular demand
	assert.Less(t, res.Forecast[20], 250.0)
	assert.Greater(t, res.Forecast[60], 0.0)

	residual := f.Residuals()
	assert.Greater(t, residual[20], 500.0)
	assert.Equal(t, 1000.0, f.TrainingData().Y[20])
}

func TestForecasterModelRoundTrip(t *testing.T) {
	f, _ := fitDemand(t, nil)
	m, err := f.Model()
	require.NoError(t, err)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	var loaded Model
	require.NoError(t, json.Unmarshal(out, &loaded))

	f2, err := NewFromModel(loaded)
	require.NoError(t, err)
	assert.Nil(t, f2.TrainingData())
	assert.Equal(t, f.Frequency(), f2.Frequency())

	expected, err := f.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	res, err := f2.Predict(30, timedataset.Daily)
	require.NoError(t, err)
	assert.Equal(t, expected.T, res.T)
	assert.InDeltaSlice(t, expected.Forecast, res.Forecast, 1e-9)
	assert.InDeltaSlice(t, expected.Upper, res.Upper, 1e-9)

	_, err = NewFromModel(Model{})
	assert.ErrorIs(t, err, ErrNoOptionsInModel)

	var buf bytes.Buffer
	require.NoError(t, m.TablePrint(&buf))
	assert.Contains(t, buf.String(), "Series Model:")
	assert.Contains(t, buf.String(), "Uncertainty Model:")
}

func TestForecasterRefit(t *testing.T) {
	f, _ := fitDemand(t, nil)

	td := demandSeries(t, 60)
	require.NoError(t, f.Fit(td.T, td.Y))
	res, err := f.Predict(5, timedataset.Daily)
	require.NoError(t, err)
	assert.Equal(t, 65, res.Len())
}

func TestComponentNames(t *testing.T) {
	comps := map[string][]float64{
		ComponentHolidays:       nil,
		"monthly":               nil,
		options.LabelSeasDaily:  nil,
		ComponentTrend:          nil,
		options.LabelSeasYearly: nil,
		options.LabelSeasWeekly: nil,
	}
	assert.Equal(t,
		[]string{ComponentTrend, options.LabelSeasYearly, options.LabelSeasWeekly, options.LabelSeasDaily, "monthly", ComponentHolidays},
		ComponentNames(comps),
	)
}
