// Package forecaster fits a point forecast of a daily or hourly series together with an
// uncertainty model of its residual, producing forecast, lower and upper values for the history
// plus a horizon.
package forecaster

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/stats"
	"github.com/aouyang1/go-demandcast/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInsufficientResidual = errors.New("insufficient samples from residual after outlier removal")
	ErrNoOptionsInModel     = errors.New("no options set in model")
)

const (
	MinResidualWindow       = 2
	MinResidualSize         = 2
	MinResidualWindowFactor = 4
)

// Forecaster fits a forecast model and can be used to generate forecasts
type Forecaster struct {
	opt *Options

	seriesForecast   *forecast.Forecast
	residualForecast *forecast.Forecast

	freq       time.Duration
	trainStart time.Time
	trainEnd   time.Time

	fitTrainingData *timedataset.TimeDataset
	fitResults      *Results
	residual        []float64
	fitted          bool
}

// New creates a new instance of a Forecaster using the provided options. If no options are
// provided a default is used. The options are copied so later changes by the caller have no effect.
func New(opt *Options) (*Forecaster, error) {
	if opt == nil {
		opt = NewDefaultOptions()
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}

	f := &Forecaster{
		opt: opt.Copy(),
	}
	if err := f.initForecasts(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Forecaster) initForecasts() error {
	seriesForecast, err := forecast.New(f.opt.seriesOptions())
	if err != nil {
		return fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	f.seriesForecast = seriesForecast

	residualForecast, err := forecast.New(f.opt.residualOptions())
	if err != nil {
		return fmt.Errorf("unable to initialize forecast residual, %w", err)
	}
	f.residualForecast = residualForecast
	return nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be
// generated from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	if err := model.Options.Validate(); err != nil {
		return nil, err
	}

	seriesForecast, err := forecast.NewFromModel(model.Series)
	if err != nil {
		return nil, fmt.Errorf("unable to load from series model, %w", err)
	}
	residualForecast, err := forecast.NewFromModel(model.Residual)
	if err != nil {
		return nil, fmt.Errorf("unable to load from residual model, %w", err)
	}
	start, end := seriesForecast.TrainWindow()
	f := &Forecaster{
		opt:              model.Options.Copy(),
		seriesForecast:   seriesForecast,
		residualForecast: residualForecast,
		freq:             seriesForecast.TrainFrequency(),
		trainStart:       start,
		trainEnd:         end,
		fitted:           true,
	}
	return f, nil
}

// Fit uses the input time and values to fit the series and uncertainty models. Refitting
// replaces any previous fit.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrNotFitted
	}
	n := min(len(t), len(y))
	if n < 2 || timedataset.TimeSlice(t[:n]).Distinct() < 2 {
		return fmt.Errorf("need at least 2 observations with distinct timestamps, got %d, %w", n, ErrInsufficientData)
	}
	if countValid(y) < 2 {
		return fmt.Errorf("need at least 2 non NaN observations, %w", ErrInsufficientData)
	}

	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}
	if f.opt.Mode == ModeMultiplicative {
		for i, v := range td.Y {
			if v <= 0 {
				return invalid("mode", "%q requires positive observations, got %.3f at %s", ModeMultiplicative, v, td.T[i])
			}
		}
	}

	freq, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return fmt.Errorf("unable to infer native frequency, %w", err)
	}

	// start from fresh models so a refit never reuses resolved options of a prior fit
	f.fitted = false
	if err := f.initForecasts(); err != nil {
		return err
	}

	f.fitTrainingData = td.Copy()
	f.freq = freq
	f.trainStart = td.T[0]
	f.trainEnd = td.T[len(td.T)-1]

	residual, err := f.fitSeriesWithOutliers(td)
	if err != nil {
		return err
	}
	f.residual = residual

	if err := f.fitResidual(td.T, residual); err != nil {
		return err
	}
	f.fitted = true

	f.fitResults, err = f.PredictTimes(td.T)
	if err != nil {
		return fmt.Errorf("unable to get predicted values from training set, %w", err)
	}

	slog.Debug("fit forecaster",
		"points", td.Len(),
		"frequency", freq,
		"lambda", f.seriesForecast.Lambda(),
		"r2", f.seriesForecast.Scores().R2,
	)
	return nil
}

func countValid(y []float64) int {
	var cnt int
	for _, v := range y {
		if !math.IsNaN(v) {
			cnt++
		}
	}
	return cnt
}

// fitSeriesWithOutliers fits the series and optionally refits after masking points whose
// residual lands outside of the Tukey fences. Returns the residual of the final fit against the
// original observations.
func (f *Forecaster) fitSeriesWithOutliers(td *timedataset.TimeDataset) ([]float64, error) {
	numPasses := 0
	if f.opt.OutlierOptions != nil {
		numPasses = f.opt.OutlierOptions.NumPasses
	}

	fitData := td.Copy()
	for i := 0; i <= numPasses; i++ {
		if err := f.seriesForecast.Fit(fitData); err != nil {
			return nil, fmt.Errorf("unable to forecast series, %w", err)
		}

		// break out if no outlier options provided
		if f.opt.OutlierOptions == nil || i == numPasses {
			break
		}

		outlierIdxs := stats.DetectOutliers(
			f.seriesForecast.Residuals(),
			f.opt.OutlierOptions.LowerPercentile,
			f.opt.OutlierOptions.UpperPercentile,
			f.opt.OutlierOptions.TukeyFactor,
		)

		// no more outliers detected with outlier options so break early
		if len(outlierIdxs) == 0 {
			break
		}
		if countValid(fitData.Y)-len(outlierIdxs) < 2 {
			slog.Warn("skipping outlier removal, too few points would remain", "outliers", len(outlierIdxs))
			break
		}
		for _, idx := range outlierIdxs {
			fitData.Y[idx] = math.NaN()
		}
		slog.Debug("removed outliers", "pass", i, "outliers", len(outlierIdxs))
	}

	pred, _, err := f.seriesForecast.Predict(td.T)
	if err != nil {
		return nil, fmt.Errorf("unable to predict training series, %w", err)
	}
	residual := make([]float64, len(td.Y))
	floats.SubTo(residual, td.Y, pred)
	return residual, nil
}

// fitResidual fits the uncertainty model on the rolling standard deviation of the residual scaled
// by the z-score of the interval width.
func (f *Forecaster) fitResidual(t []time.Time, residual []float64) error {
	rt := make([]time.Time, 0, len(t))
	rr := make([]float64, 0, len(residual))
	for i, v := range residual {
		if math.IsNaN(v) {
			continue
		}
		rt = append(rt, t[i])
		rr = append(rr, v)
	}
	if len(rr) < MinResidualSize {
		return ErrInsufficientResidual
	}

	z := distuv.UnitNormal.Quantile(0.5 + f.opt.IntervalWidth/2.0)

	// limit residual window to a quarter of the residual
	window := f.opt.ResidualWindow
	if window == 0 {
		window = DefaultResidualWindow
	}
	window = min(window, len(rr)/MinResidualWindowFactor)
	window = max(window, MinResidualWindow)

	var residualData *timedataset.TimeDataset
	var err error
	numWindows := len(rr) - window + 1
	if numWindows < 2 {
		// too short for a rolling estimate so the band is a constant width
		_, stddev := stat.MeanStdDev(rr, nil)
		band := make([]float64, len(rr))
		floats.AddConst(z*stddev, band)
		residualData, err = timedataset.NewUnivariateDataset(rt, band)
	} else {
		stddevSeries := make([]float64, numWindows)
		for i := 0; i < numWindows; i++ {
			_, stddev := stat.MeanStdDev(rr[i:i+window], nil)
			stddevSeries[i] = z * stddev
		}

		// shifting by half the residual window since computing the residual series is similar to a
		// finite impulse response filtering having a group delay of window/2.
		start := window / 2
		end := start + numWindows
		residualData, err = timedataset.NewUnivariateDataset(rt[start:end], stddevSeries)
	}
	if err != nil {
		return fmt.Errorf("unable to create univariate dataset for residual, %w", err)
	}

	if err := f.residualForecast.Fit(residualData); err != nil {
		return fmt.Errorf("unable to forecast residual, %w", err)
	}
	return nil
}

// Predict forecasts the contiguous range from the first training timestamp through horizon
// steps past the last one. The frequency must match the native frequency of the training data
// and a horizon of zero returns exactly the historical range.
func (f *Forecaster) Predict(horizon int, freq timedataset.Frequency) (*Results, error) {
	if f == nil || !f.fitted {
		return nil, ErrNotFitted
	}
	if horizon < 0 {
		return nil, fmt.Errorf("horizon must be non-negative, got %d, %w", horizon, ErrInvalidHorizon)
	}
	if freq.Duration() != f.freq {
		return nil, fmt.Errorf("frequency %s does not match the training frequency %s, %w",
			freq, timedataset.Frequency(f.freq), ErrInvalidHorizon)
	}

	steps := int(f.trainEnd.Sub(f.trainStart) / f.freq)
	return f.PredictTimes(timedataset.GenerateRange(f.trainStart, steps+1+horizon, freq))
}

// PredictTimes takes in any set of time samples and generates a forecast, upper, lower values
// per time point
func (f *Forecaster) PredictTimes(t []time.Time) (*Results, error) {
	if f == nil || !f.fitted {
		return nil, ErrNotFitted
	}

	seriesRes, seriesComp, err := f.seriesForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}
	residualRes, residualComp, err := f.residualForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict residual forecasts, %w", err)
	}

	// cap residual predictions to be greater than or equal to 0
	for i := 0; i < len(residualRes); i++ {
		if residualRes[i] < 0.0 || math.IsNaN(residualRes[i]) {
			residualRes[i] = 0.0
		}
	}

	tCopy := make([]time.Time, len(t))
	copy(tCopy, t)
	r := &Results{
		T:                  tCopy,
		Forecast:           seriesRes,
		SeriesComponents:   seriesComp,
		ResidualComponents: residualComp,
		hasEvents:          f.opt.Holidays != "" || len(f.opt.Events) > 0,
	}
	upper := make([]float64, len(seriesRes))
	lower := make([]float64, len(seriesRes))

	copy(upper, seriesRes)
	copy(lower, seriesRes)

	floats.Add(upper, residualRes)
	floats.Sub(lower, residualRes)
	r.Upper = upper
	r.Lower = lower
	return r, nil
}

// Options returns a copy of the options the forecaster was created with
func (f *Forecaster) Options() *Options {
	return f.opt.Copy()
}

// Frequency returns the native frequency inferred from the training timestamps
func (f *Forecaster) Frequency() timedataset.Frequency {
	return timedataset.Frequency(f.freq)
}

// Residuals returns the difference between the final series fit against the training data
func (f *Forecaster) Residuals() []float64 {
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// Scores returns the fit scores of the series model
func (f *Forecaster) Scores() forecast.Scores {
	return f.seriesForecast.Scores()
}

// TrendComponent returns the trend component created by changepoints after fitting
func (f *Forecaster) TrendComponent() []float64 {
	return f.seriesForecast.TrendComponent()
}

// SeasonalityComponent returns the seasonality component after fitting the fourier series
func (f *Forecaster) SeasonalityComponent() []float64 {
	return f.seriesForecast.SeasonalityComponent()
}

// SeriesIntercept returns the intercept of the series fit
func (f *Forecaster) SeriesIntercept() float64 {
	return f.seriesForecast.Intercept()
}

// SeriesCoefficients returns all coefficient weight associated with the component label string
func (f *Forecaster) SeriesCoefficients() (map[string]float64, error) {
	return f.seriesForecast.Coefficients()
}

// ResidualIntercept returns the intercept of the uncertainty fit
func (f *Forecaster) ResidualIntercept() float64 {
	return f.residualForecast.Intercept()
}

// ResidualCoefficients returns all uncertainty coefficient weights associated with the component label string
func (f *Forecaster) ResidualCoefficients() (map[string]float64, error) {
	return f.residualForecast.Coefficients()
}

// Model generates a serializeable representation of the fit options, series model, and
// uncertainty model. This can be used to initialize a new Forecaster for immediate predictions
// skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	if f == nil || !f.fitted {
		return Model{}, ErrNotFitted
	}
	seriesModel, err := f.seriesForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch series model, %w", err)
	}
	residualModel, err := f.residualForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch residual model, %w", err)
	}
	m := Model{
		Options:  f.opt.Copy(),
		Series:   seriesModel,
		Residual: residualModel,
	}
	return m, nil
}

// SeriesModelEq returns a string representation of the fit series model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) SeriesModelEq() (string, error) {
	return f.seriesForecast.ModelEq()
}

// ResidualModelEq returns a string representation of the fit uncertainty model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) ResidualModelEq() (string, error) {
	return f.residualForecast.ModelEq()
}

// TrainingData returns the training data used to fit the current forecaster model. Forecasters
// loaded from a model have no training data.
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	if f.fitTrainingData == nil {
		return nil
	}
	return f.fitTrainingData.Copy()
}

// FitResults returns the results of the fit which includes the forecast, upper, and lower values
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}
