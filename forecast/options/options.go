// Package options contains all forecast options for a linear fit of a univariate time series
package options

import (
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-demandcast/feature"
	"github.com/aouyang1/go-demandcast/linearmodel"
)

const (
	LabelTimeEpoch = "epoch"

	LabelSeasDaily  = "daily"
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"

	DefaultIterations = 5000
	DefaultTolerance  = 1e-6
)

var ErrUnknownTimeFeature = errors.New("unknown time feature")

// Options configures a forecast by specifying changepoints, seasonality orders and events.
// UseLog fits the logarithm of the series which turns the additive model into a multiplicative
// one in the original units.
type Options struct {
	UseLog bool `json:"use_log"`

	ChangepointOptions ChangepointOptions `json:"changepoint_options"`
	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	EventOptions       EventOptions       `json:"event_options"`

	// Lasso related options
	Iterations int     `json:"iterations"`
	Tolerance  float64 `json:"tolerance"`
}

// NewDefaultOptions returns a set of default forecast options
func NewDefaultOptions() *Options {
	return &Options{
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		EventOptions:       NewDefaultEventOptions(),
		Iterations:         DefaultIterations,
		Tolerance:          DefaultTolerance,
	}
}

// Copy returns a deep copy of the options so a fit never leaks into the caller's options
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	res := *o
	res.ChangepointOptions.Changepoints = append([]Changepoint(nil), o.ChangepointOptions.Changepoints...)
	res.SeasonalityOptions.SeasonalityConfigs = append([]SeasonalityConfig(nil), o.SeasonalityOptions.SeasonalityConfigs...)
	res.EventOptions.Events = append([]Event(nil), o.EventOptions.Events...)
	return &res
}

// NewLassoOptions builds the lasso options for the given penalty and feature labels. Only
// changepoints and events are penalized, events scaled by the ratio of the prior scales.
func (o *Options) NewLassoOptions(lambda float64, labels []feature.Feature) *linearmodel.LassoOptions {
	lassoOpt := linearmodel.NewDefaultLassoOptions()
	lassoOpt.FitIntercept = false
	lassoOpt.Lambda = lambda

	lassoOpt.Iterations = o.Iterations
	if o.Iterations == 0 {
		lassoOpt.Iterations = DefaultIterations
	}

	lassoOpt.Tolerance = o.Tolerance
	if o.Tolerance == 0 {
		lassoOpt.Tolerance = DefaultTolerance
	}

	eventFactor := 0.0
	if o.EventOptions.PriorScale > 0 && o.ChangepointOptions.PriorScale > 0 {
		eventFactor = o.ChangepointOptions.PriorScale / o.EventOptions.PriorScale
	}

	pf := make([]float64, len(labels))
	for i, label := range labels {
		switch label.Type() {
		case feature.FeatureTypeChangepoint:
			pf[i] = 1.0
		case feature.FeatureTypeEvent:
			pf[i] = eventFactor
		}
	}
	lassoOpt.PenaltyFactors = pf
	return lassoOpt
}

// GenerateTimeFeatures returns the epoch time feature along with the intercept and linear growth
// features scaled to the training window
func (o *Options) GenerateTimeFeatures(t []time.Time, trainStartTime, trainEndTime time.Time) (*feature.Set, *feature.Set) {
	tFeat := feature.NewSet()

	feat := feature.NewTime(LabelTimeEpoch)
	epoch := feat.Generate(t)
	tFeat.Set(feat, epoch)

	growth := feature.NewSet()
	interceptFeat := feature.Intercept()
	growth.Set(interceptFeat, interceptFeat.Generate(epoch, trainStartTime, trainEndTime))
	if trainEndTime.After(trainStartTime) {
		linearFeat := feature.Linear()
		growth.Set(linearFeat, linearFeat.Generate(epoch, trainStartTime, trainEndTime))
	}
	return tFeat, growth
}

// GenerateChangepointFeatures returns the slope ramps of every configured changepoint
func (o *Options) GenerateChangepointFeatures(tFeat *feature.Set, trainStartTime, trainEndTime time.Time) (*feature.Set, error) {
	epoch, exists := tFeat.Get(feature.NewTime(LabelTimeEpoch))
	if !exists {
		return nil, ErrUnknownTimeFeature
	}
	return o.ChangepointOptions.GenerateFeatures(epoch, trainStartTime, trainEndTime), nil
}

// GenerateEventFeatures returns the event and holiday indicators over the time points
func (o *Options) GenerateEventFeatures(t []time.Time) *feature.Set {
	return o.EventOptions.GenerateFeatures(t)
}

// GenerateFourierFeatures returns the sine and cosine terms of every seasonality skipping orders
// that duplicate a shorter seasonality
func (o *Options) GenerateFourierFeatures(tFeat *feature.Set) (*feature.Set, error) {
	x := feature.NewSet()

	colinearCfgOrders := o.SeasonalityOptions.colinearConfigOrders()
	for _, seasCfg := range o.SeasonalityOptions.SeasonalityConfigs {
		orders := seasCfg.filterOutColinearOrders(colinearCfgOrders)
		seasFeatures, err := generateFourierOrders(tFeat, orders, seasCfg.Period, seasCfg.Name)
		if err != nil {
			return nil, fmt.Errorf("unable to generate seasonality features for %q, %w", seasCfg.Name, err)
		}
		x.Update(seasFeatures)
	}
	return x, nil
}

func generateFourierOrders(tFeatures *feature.Set, orders []int, periodDur time.Duration, label string) (*feature.Set, error) {
	if tFeatures == nil {
		return nil, ErrUnknownTimeFeature
	}

	tFeat, exists := tFeatures.Get(feature.NewTime(LabelTimeEpoch))
	if !exists {
		return nil, ErrUnknownTimeFeature
	}

	period := periodDur.Seconds()

	x := feature.NewSet()
	for _, order := range orders {
		sinFeat := feature.NewSeasonality(label, feature.FourierCompSin, order)
		cosFeat := feature.NewSeasonality(label, feature.FourierCompCos, order)
		x.Set(sinFeat, sinFeat.Generate(tFeat, period))
		x.Set(cosFeat, cosFeat.Generate(tFeat, period))
	}

	return x, nil
}
