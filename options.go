package forecaster

import (
	"fmt"
	"math"

	"github.com/aouyang1/go-demandcast/forecast/options"
)

// Mode selects how seasonal terms combine with the trend
type Mode string

const (
	ModeAdditive       Mode = "additive"
	ModeMultiplicative Mode = "multiplicative"
)

const (
	DefaultSmoothness        = options.DefaultChangepointPrior
	DefaultIntervalWidth     = 0.8
	DefaultResidualWindow    = 100
	DefaultHolidayPriorScale = options.DefaultEventPrior
	DefaultParallelization   = 4
)

// OutlierOptions configures the optional passes that drop points whose fit residual falls
// outside of the Tukey fences before refitting.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// Options configures a Forecaster. Yearly, Weekly and Daily enable the seasonal terms which are
// still dropped at fit time when the training data cannot support them. Smoothness is the
// changepoint prior scale where smaller values produce a stiffer trend.
type Options struct {
	Yearly bool `json:"yearly"`
	Weekly bool `json:"weekly"`
	Daily  bool `json:"daily"`

	Mode       Mode    `json:"mode"`
	Smoothness float64 `json:"smoothness"`

	// Changepoints are explicit trend changes. When empty, NumChangepoints are placed over the
	// first ChangepointRange fraction of the history.
	Changepoints     []options.Changepoint `json:"changepoints"`
	NumChangepoints  int                   `json:"num_changepoints"`
	ChangepointRange float64               `json:"changepoint_range"`

	Holidays          string          `json:"holidays"`
	Events            []options.Event `json:"events"`
	HolidayPriorScale float64         `json:"holiday_prior_scale"`

	IntervalWidth  float64         `json:"interval_width"`
	ResidualWindow int             `json:"residual_window"`
	OutlierOptions *OutlierOptions `json:"outlier_options"`

	Iterations      int     `json:"iterations"`
	Tolerance       float64 `json:"tolerance"`
	Parallelization int     `json:"parallelization"`
}

// NewDefaultOptions enables every seasonal term with additive mode and the Prophet default
// smoothness and interval width
func NewDefaultOptions() *Options {
	return &Options{
		Yearly:            true,
		Weekly:            true,
		Daily:             true,
		Mode:              ModeAdditive,
		Smoothness:        DefaultSmoothness,
		NumChangepoints:   options.DefaultAutoNumChangepoints,
		ChangepointRange:  options.DefaultChangepointRange,
		HolidayPriorScale: DefaultHolidayPriorScale,
		IntervalWidth:     DefaultIntervalWidth,
		ResidualWindow:    DefaultResidualWindow,
		Iterations:        options.DefaultIterations,
		Tolerance:         options.DefaultTolerance,
		Parallelization:   DefaultParallelization,
	}
}

func invalid(param string, format string, args ...any) error {
	return fmt.Errorf("%s %s, %w", param, fmt.Sprintf(format, args...), ErrInvalidConfig)
}

// Validate checks every parameter and names the first offending one in the returned error
func (o *Options) Validate() error {
	if o == nil {
		return invalid("options", "must be set")
	}
	if math.IsNaN(o.Smoothness) || o.Smoothness <= 0 {
		return invalid("smoothness", "must be positive, got %v", o.Smoothness)
	}
	switch o.Mode {
	case ModeAdditive, ModeMultiplicative:
	default:
		return invalid("mode", "must be %q or %q, got %q", ModeAdditive, ModeMultiplicative, o.Mode)
	}
	if o.NumChangepoints < 0 {
		return invalid("num_changepoints", "must be non-negative, got %d", o.NumChangepoints)
	}
	if o.ChangepointRange < 0 || o.ChangepointRange > 1 {
		return invalid("changepoint_range", "must be within [0, 1], got %v", o.ChangepointRange)
	}
	if err := options.ValidCalendar(o.Holidays); err != nil {
		return invalid("holidays", "%v", err)
	}
	for _, ev := range o.Events {
		if err := ev.Valid(); err != nil {
			return invalid("events", "%q %v", ev.Name, err)
		}
	}
	if o.HolidayPriorScale < 0 {
		return invalid("holiday_prior_scale", "must be non-negative, got %v", o.HolidayPriorScale)
	}
	if !(o.IntervalWidth > 0 && o.IntervalWidth < 1) {
		return invalid("interval_width", "must be within (0, 1), got %v", o.IntervalWidth)
	}
	if o.ResidualWindow < 0 {
		return invalid("residual_window", "must be non-negative, got %d", o.ResidualWindow)
	}
	if o.Iterations < 0 {
		return invalid("iterations", "must be non-negative, got %d", o.Iterations)
	}
	if o.Tolerance < 0 {
		return invalid("tolerance", "must be non-negative, got %v", o.Tolerance)
	}
	if o.Parallelization < 0 {
		return invalid("parallelization", "must be non-negative, got %d", o.Parallelization)
	}
	if oo := o.OutlierOptions; oo != nil {
		if oo.NumPasses < 0 {
			return invalid("outlier_options.num_passes", "must be non-negative, got %d", oo.NumPasses)
		}
		if oo.LowerPercentile < 0 || oo.UpperPercentile > 1 || oo.LowerPercentile >= oo.UpperPercentile {
			return invalid("outlier_options.percentiles", "must satisfy 0 <= lower < upper <= 1, got %v and %v",
				oo.LowerPercentile, oo.UpperPercentile)
		}
	}
	return nil
}

// Copy returns a deep copy of the options
func (o *Options) Copy() *Options {
	if o == nil {
		return nil
	}
	res := *o
	res.Changepoints = append([]options.Changepoint(nil), o.Changepoints...)
	res.Events = append([]options.Event(nil), o.Events...)
	if o.OutlierOptions != nil {
		oo := *o.OutlierOptions
		res.OutlierOptions = &oo
	}
	return &res
}

func (o *Options) seasonalityConfigs() []options.SeasonalityConfig {
	var cfgs []options.SeasonalityConfig
	if o.Yearly {
		cfgs = append(cfgs, options.NewYearlySeasonalityConfig(options.DefaultYearlyOrders))
	}
	if o.Weekly {
		cfgs = append(cfgs, options.NewWeeklySeasonalityConfig(options.DefaultWeeklyOrders))
	}
	if o.Daily {
		cfgs = append(cfgs, options.NewDailySeasonalityConfig(options.DefaultDailyOrders))
	}
	return cfgs
}

// seriesOptions maps the options onto the point forecast model
func (o *Options) seriesOptions() *options.Options {
	opt := options.NewDefaultOptions()
	opt.UseLog = o.Mode == ModeMultiplicative
	opt.ChangepointOptions = options.ChangepointOptions{
		Changepoints:        o.Changepoints,
		Auto:                len(o.Changepoints) == 0,
		AutoNumChangepoints: o.NumChangepoints,
		Range:               o.ChangepointRange,
		PriorScale:          o.Smoothness,
	}
	opt.SeasonalityOptions = options.SeasonalityOptions{SeasonalityConfigs: o.seasonalityConfigs()}
	opt.EventOptions = options.EventOptions{
		Events:     o.Events,
		Holidays:   o.Holidays,
		PriorScale: o.HolidayPriorScale,
	}
	if o.Iterations > 0 {
		opt.Iterations = o.Iterations
	}
	if o.Tolerance > 0 {
		opt.Tolerance = o.Tolerance
	}
	return opt.Copy()
}

// residualOptions maps the options onto the uncertainty model which keeps the seasonal terms
// but has a fixed trend and no events
func (o *Options) residualOptions() *options.Options {
	opt := o.seriesOptions()
	opt.UseLog = false
	opt.ChangepointOptions = options.ChangepointOptions{PriorScale: o.Smoothness}
	opt.EventOptions = options.EventOptions{}
	return opt
}
