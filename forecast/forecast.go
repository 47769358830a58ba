// Package forecast fits a single linear model of a univariate time series composed of a growth
// trend with changepoints, Fourier seasonality and event indicators.
package forecast

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aouyang1/go-demandcast/feature"
	"github.com/aouyang1/go-demandcast/forecast/options"
	"github.com/aouyang1/go-demandcast/linearmodel"
	"github.com/aouyang1/go-demandcast/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing Nans")
	ErrNonPositiveLogData       = errors.New("log fit requires strictly positive observations")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
)

// Forecast represents a single forecast model of a time series. This is a linear model using
// coordinate descent to calculate the weights. This will decompose the series into a trend
// (intercept, growth and changepoints), seasonal components and events.
type Forecast struct {
	opt    *options.Options
	scores *Scores // score calculations after training

	// model coefficients
	fLabels *feature.Labels
	coef    []float64

	trainStartTime time.Time
	trainEndTime   time.Time
	trainFreq      time.Duration
	yScale         float64
	lambda         float64

	residual        []float64
	trainComponents Components

	trained bool
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used. The options are copied so the fit never changes the caller's options.
func New(opt *options.Options) (*Forecast, error) {
	if opt == nil {
		opt = options.NewDefaultOptions()
	}

	return &Forecast{opt: opt.Copy(), yScale: 1.0}, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inference immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	if model.Options == nil {
		return nil, ErrUninitializedForecast
	}
	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, fmt.Errorf("unable to decode feature labels, %w", err)
	}

	yScale := model.YScale
	if yScale == 0 {
		yScale = 1.0
	}
	f := &Forecast{
		opt:            model.Options.Copy(),
		fLabels:        feature.NewLabels(labels),
		trainStartTime: model.TrainStartTime,
		trainEndTime:   model.TrainEndTime,
		trainFreq:      model.TrainFrequency,
		yScale:         yScale,
		lambda:         model.Lambda,
		coef:           model.Weights.Coefficients(),
		scores:         model.Scores,
		trained:        true,
	}
	return f, nil
}

// generateFeatures builds every regressor for the time points. The training window bounds scale
// the growth and changepoint features so inference must use the window from the fit.
func (f *Forecast) generateFeatures(t []time.Time) (*feature.Set, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	tFeat, x := f.opt.GenerateTimeFeatures(t, f.trainStartTime, f.trainEndTime)

	chptFeat, err := f.opt.GenerateChangepointFeatures(tFeat, f.trainStartTime, f.trainEndTime)
	if err != nil {
		return nil, fmt.Errorf("unable to generate changepoint features, %w", err)
	}
	x.Update(chptFeat)

	seasFeat, err := f.opt.GenerateFourierFeatures(tFeat)
	if err != nil {
		return nil, fmt.Errorf("unable to generate seasonality features, %w", err)
	}
	x.Update(seasFeat)

	x.Update(f.opt.GenerateEventFeatures(t))
	return x, nil
}

// Fit takes the input training data and fits a forecast model for possible changepoints,
// seasonal components, events and growth
func (f *Forecast) Fit(trainingData *timedataset.TimeDataset) error {
	if f == nil {
		return ErrUninitializedForecast
	}
	if trainingData == nil {
		return ErrInsufficientTrainingData
	}

	// remove any NaNs from training set
	fitData := trainingData.DropNan()
	if fitData.Len() <= 1 {
		return ErrInsufficientTrainingData
	}

	y := make([]float64, len(fitData.Y))
	copy(y, fitData.Y)
	if f.opt.UseLog {
		for i, v := range y {
			if v <= 0 {
				return fmt.Errorf("value %.3f at %s, %w", v, fitData.T[i], ErrNonPositiveLogData)
			}
			y[i] = math.Log(v)
		}
	}

	// scale by the largest magnitude so the penalty is comparable across series
	f.yScale = math.Max(math.Abs(floats.Max(y)), math.Abs(floats.Min(y)))
	if f.yScale == 0 {
		f.yScale = 1.0
	}
	floats.Scale(1.0/f.yScale, y)

	f.trainStartTime = fitData.T[0]
	f.trainEndTime = fitData.T[len(fitData.T)-1]

	ts := timedataset.TimeSlice(fitData.T)
	freq, err := ts.EstimateFreq()
	if err != nil {
		return fmt.Errorf("unable to infer training frequency, %w", err)
	}
	f.trainFreq = freq
	f.opt.SeasonalityOptions.FitTrainingWindow(f.trainEndTime.Sub(f.trainStartTime), freq)
	f.opt.ChangepointOptions.GenerateAutoChangepoints(fitData.T)

	x, err := f.generateFeatures(fitData.T)
	if err != nil {
		return err
	}
	x.RemoveZeroOnlyFeatures()
	labels := x.Labels().Labels()

	sigma2 := f.noiseVariance(x, y)
	f.lambda = 0
	if f.opt.ChangepointOptions.PriorScale > 0 {
		f.lambda = sigma2 / f.opt.ChangepointOptions.PriorScale
	}

	lasso, err := linearmodel.NewLassoRegression(f.opt.NewLassoOptions(f.lambda, labels))
	if err != nil {
		return fmt.Errorf("unable to initialize lasso regression, %w", err)
	}
	yMx := mat.NewDense(len(y), 1, y)
	if err := lasso.Fit(x.Matrix(), yMx); err != nil {
		return fmt.Errorf("unable to fit lasso regression, %w", err)
	}
	slog.Debug("fit forecast", "features", len(labels), "lambda", f.lambda, "iterations", lasso.Iterations())

	f.fLabels = feature.NewLabels(labels)
	f.coef = lasso.Coef()
	f.trained = true

	// use input training to include NaNs
	predicted, comp, err := f.Predict(trainingData.T)
	if err != nil {
		return err
	}
	f.trainComponents = comp

	scores, err := NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, len(trainingData.T))
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual

	return nil
}

// noiseVariance estimates the observation noise with an ordinary least squares fit of the
// unpenalized features. Falls back to the variance of the series when the fit is underdetermined.
func (f *Forecast) noiseVariance(x *feature.Set, y []float64) float64 {
	base := x.FilterType(feature.FeatureTypeGrowth, feature.FeatureTypeSeasonality)
	yMx := mat.NewDense(len(y), 1, y)

	ols, err := linearmodel.NewOLSRegression(&linearmodel.OLSOptions{FitIntercept: false})
	if err == nil {
		if err = ols.Fit(base.Matrix(), yMx); err == nil {
			var sigma2 float64
			if sigma2, err = ols.ResidualVariance(base.Matrix(), yMx); err == nil && !math.IsNaN(sigma2) {
				return sigma2
			}
		}
	}
	slog.Debug("falling back to series variance for noise estimate", "error", err)
	return stat.Variance(y, nil)
}

// Predict takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model.
func (f *Forecast) Predict(t []time.Time) ([]float64, Components, error) {
	if f == nil {
		return nil, Components{}, ErrUninitializedForecast
	}

	if !f.trained {
		return nil, Components{}, ErrUntrainedForecast
	}

	// generate features
	x, err := f.generateFeatures(t)
	if err != nil {
		return nil, Components{}, err
	}

	trend := f.runInference(x.FilterType(feature.FeatureTypeGrowth, feature.FeatureTypeChangepoint), len(t))
	event := f.runInference(x.FilterType(feature.FeatureTypeEvent), len(t))
	seasonality := make(map[string][]float64)
	seasFeat := x.FilterType(feature.FeatureTypeSeasonality)
	for _, name := range f.opt.SeasonalityOptions.Names() {
		seasonality[name] = f.runInference(filterSeasonality(seasFeat, name), len(t))
	}
	res := f.runInference(x, len(t))

	comp := Components{
		Trend:       trend,
		Seasonality: seasonality,
		Event:       event,
	}

	if !f.opt.UseLog {
		return res, comp, nil
	}

	// back to the original units where seasonality and events become multipliers of the trend
	sliceMap(res, math.Exp)
	sliceMap(comp.Trend, math.Exp)
	sliceMap(comp.Event, math.Expm1)
	for _, s := range comp.Seasonality {
		sliceMap(s, math.Expm1)
	}
	return res, comp, nil
}

func filterSeasonality(x *feature.Set, name string) *feature.Set {
	res := feature.NewSet()
	for _, label := range x.Labels().Labels() {
		if val, _ := label.Get("name"); val != name {
			continue
		}
		data, _ := x.Get(label)
		res.Set(label, data)
	}
	return res
}

// runInference multiplies the features with their fit weights in the original scale. Features
// that were not part of the fit contribute nothing.
func (f *Forecast) runInference(x *feature.Set, n int) []float64 {
	res := make([]float64, n)
	if f == nil || x.Len() == 0 {
		return res
	}

	xLabels := x.Labels().Labels()
	xWeights := make([]float64, len(xLabels))
	for i, xFeat := range xLabels {
		if wIdx, exists := f.fLabels.Index(xFeat); exists {
			xWeights[i] = f.coef[wIdx] * f.yScale
		}
	}

	featMx := x.Matrix()
	if featMx == nil {
		return res
	}
	var resVec mat.VecDense
	resVec.MulVec(featMx, mat.NewVecDense(len(xWeights), xWeights))
	copy(res, resVec.RawVector().Data)
	return res
}

func sliceMap(arr []float64, lambda func(float64) float64) []float64 {
	for i, v := range arr {
		arr[i] = lambda(v)
	}
	return arr
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}

	return f.fLabels.Labels()
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label in the original units
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64)
	for i := 0; i < len(f.coef); i++ {
		coef[labels[i].String()] = f.coef[i] * f.yScale
	}
	return coef, nil
}

// Intercept returns the intercept of the forecast model
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	if idx, exists := f.fLabels.Index(feature.Intercept()); exists {
		return f.coef[idx] * f.yScale
	}
	return 0
}

// Options returns a copy of the options with the changepoints and seasonalities resolved
// during the fit
func (f *Forecast) Options() *options.Options {
	if f == nil {
		return nil
	}
	return f.opt.Copy()
}

// Lambda returns the lasso penalty used in the last fit
func (f *Forecast) Lambda() float64 {
	if f == nil {
		return 0
	}
	return f.lambda
}

// TrainFrequency returns the sampling interval inferred from the training timestamps
func (f *Forecast) TrainFrequency() time.Duration {
	if f == nil {
		return 0
	}
	return f.trainFreq
}

// TrainWindow returns the first and last timestamps of the training data
func (f *Forecast) TrainWindow() (time.Time, time.Time) {
	if f == nil {
		return time.Time{}, time.Time{}
	}
	return f.trainStartTime, f.trainEndTime
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, coefficients with their feature labels, and the model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	fws := make([]FeatureWeight, 0, len(f.coef))
	labels := f.fLabels.Labels()
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	m := Model{
		TrainStartTime: f.trainStartTime,
		TrainEndTime:   f.trainEndTime,
		TrainFrequency: f.trainFreq,
		YScale:         f.yScale,
		Lambda:         f.lambda,
		Options:        f.opt.Copy(),
		Weights:        Weights{Coef: fws},
		Scores:         f.scores,
	}
	return m, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}

	coef, err := f.Coefficients()
	if err != nil {
		return "", err
	}

	eq := "y ~ "
	if f.opt.UseLog {
		eq = "log(y) ~ "
	}
	first := true
	for _, label := range f.fLabels.Labels() {
		w := coef[label.String()]
		if w == 0 {
			continue
		}
		if !first {
			eq += "+"
		}
		eq += fmt.Sprintf("%.2f*%s", w, label)
		first = false
	}
	return eq, nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil {
		return Scores{}
	}
	if f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// TrendComponent represents the overall trend component of the model which is determined
// by the growth and changepoints.
func (f *Forecast) TrendComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Trend))
	copy(res, f.trainComponents.Trend)
	return res
}

// SeasonalityComponent represents the overall seasonal component of the model
func (f *Forecast) SeasonalityComponent() []float64 {
	if f == nil {
		return nil
	}
	return f.trainComponents.SeasonalityTotal()
}
