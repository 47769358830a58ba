package timedataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSeed is the seed used by the course material when none is given
const DefaultSeed uint64 = 1405

var ErrInvalidSeriesSpec = errors.New("invalid series spec")

// NewSource creates the random source owned by a single pipeline run. Every generator takes
// the source explicitly so the draw order is visible at the call site.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Component produces one deterministic part of a synthetic series for the given timestamps
type Component func(t []time.Time) Series

// SeriesSpec describes how to synthesize a series. Value = round(trend + seasonal + noise).
type SeriesSpec struct {
	Start time.Time
	Count int
	Freq  Frequency

	Trend    Component
	Seasonal Component

	// NoiseStdDev is the standard deviation of the zero mean gaussian noise added per point
	NoiseStdDev float64

	// Precision is the number of decimals kept. Negative disables rounding.
	Precision int
}

// Validate checks that the spec can produce a series
func (s SeriesSpec) Validate() error {
	if s.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d, %w", s.Count, ErrInvalidSeriesSpec)
	}
	if !s.Freq.Valid() {
		return fmt.Errorf("frequency must be positive, got %s, %w", s.Freq, ErrInvalidSeriesSpec)
	}
	if s.NoiseStdDev < 0 || math.IsNaN(s.NoiseStdDev) {
		return fmt.Errorf("noise standard deviation must be non-negative, got %f, %w", s.NoiseStdDev, ErrInvalidSeriesSpec)
	}
	return nil
}

// DemandSpec is the daily demand series: a linear trend from 100 to 150, a day of week
// sinusoid of amplitude 20 and gaussian noise with a standard deviation of 10.
func DemandSpec(start time.Time, count int) SeriesSpec {
	return SeriesSpec{
		Start:       start,
		Count:       count,
		Freq:        Daily,
		Trend:       Linspace(100, 150),
		Seasonal:    DayOfWeekWave(20),
		NoiseStdDev: 10,
		Precision:   2,
	}
}

// ProductionSpec is the hourly production series: a daily sinusoid of amplitude 10 around 50
// with gaussian noise with a standard deviation of 5.
func ProductionSpec(start time.Time, count int) SeriesSpec {
	return SeriesSpec{
		Start:       start,
		Count:       count,
		Freq:        Hourly,
		Trend:       Constant(50),
		Seasonal:    HourOfDayWave(10),
		NoiseStdDev: 5,
		Precision:   2,
	}
}

// Generate synthesizes a series from the spec drawing the noise from rng. The same spec and
// the same source state always produce the same series.
func Generate(spec SeriesSpec, rng *rand.Rand) (*TimeDataset, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if rng == nil && spec.NoiseStdDev > 0 {
		return nil, fmt.Errorf("no random source provided, %w", ErrInvalidSeriesSpec)
	}

	t := GenerateRange(spec.Start.UTC(), spec.Count, spec.Freq)
	y := GenerateConstY(spec.Count, 0)
	if spec.Trend != nil {
		y.Add(spec.Trend(t))
	}
	if spec.Seasonal != nil {
		y.Add(spec.Seasonal(t))
	}
	if spec.NoiseStdDev > 0 {
		y.Add(GenerateNoise(rng, spec.Count, spec.NoiseStdDev))
	}
	if spec.Precision >= 0 {
		y.Round(spec.Precision)
	}
	return &TimeDataset{T: t, Y: y}, nil
}

// Linspace interpolates linearly from start to stop across all timestamps
func Linspace(start, stop float64) Component {
	return func(t []time.Time) Series {
		y := make([]float64, len(t))
		switch len(t) {
		case 0:
		case 1:
			y[0] = start
		default:
			floats.Span(y, start, stop)
		}
		return Series(y)
	}
}

// Constant returns the same value at every timestamp
func Constant(val float64) Component {
	return func(t []time.Time) Series {
		return GenerateConstY(len(t), val)
	}
}

// DayOfWeekWave is amp*sin(2*pi*dow/7) where Monday is day 0
func DayOfWeekWave(amp float64) Component {
	return func(t []time.Time) Series {
		y := make([]float64, len(t))
		for i, tPnt := range t {
			dow := (int(tPnt.Weekday()) + 6) % 7
			y[i] = amp * math.Sin(2.0*math.Pi*float64(dow)/7.0)
		}
		return Series(y)
	}
}

// HourOfDayWave is amp*sin(2*pi*hour/24)
func HourOfDayWave(amp float64) Component {
	return func(t []time.Time) Series {
		y := make([]float64, len(t))
		for i, tPnt := range t {
			y[i] = amp * math.Sin(2.0*math.Pi*float64(tPnt.Hour())/24.0)
		}
		return Series(y)
	}
}

// GenerateT returns n points ending one interval before the minute truncated now
func GenerateT(n int, interval time.Duration, nowFunc func() time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	ct := time.Unix(nowFunc().Unix()/60*60, 0).Add(-time.Duration(n) * interval).UTC()
	for i := 0; i < n; i++ {
		t = append(t, ct.Add(interval*time.Duration(i)))
	}
	return t
}

type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	n := len(s)
	for i := 0; i < n; i++ {
		if (t[i].After(start) || t[i].Equal(start)) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

// Round rounds every value half away from zero to prec decimals
func (s Series) Round(prec int) Series {
	for i, v := range s {
		s[i] = scalar.Round(v, prec)
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, val)
	}
	return Series(y)
}

func GenerateWaveY(t []time.Time, amp, periodSec, order, timeOffset float64) Series {
	n := len(t)
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		val := amp * math.Sin(2.0*math.Pi*order/periodSec*(float64(t[i].Unix())+timeOffset))
		y = append(y, val)
	}
	return Series(y)
}

// GenerateNoise draws n independent zero mean gaussian values
func GenerateNoise(rng *rand.Rand, n int, stddev float64) Series {
	dist := distuv.Normal{Mu: 0, Sigma: stddev, Src: rng}
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, dist.Rand())
	}
	return Series(y)
}

// GenerateNormal draws n values from a gaussian with the given mean and standard deviation
func GenerateNormal(rng *rand.Rand, n int, mu, sigma float64) Series {
	dist := distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}
	y := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		y = append(y, dist.Rand())
	}
	return Series(y)
}

// GenerateUniformInt draws n integers uniformly from [lo, hi)
func GenerateUniformInt(rng *rand.Rand, n, lo, hi int) Series {
	y := make([]float64, 0, n)
	if hi <= lo {
		return GenerateConstY(n, float64(lo))
	}
	for i := 0; i < n; i++ {
		y = append(y, float64(lo+rng.IntN(hi-lo)))
	}
	return Series(y)
}

// GenerateChange adds a jump of bias and a per minute slope starting at the changepoint
func GenerateChange(t []time.Time, chpt time.Time, bias, slope float64) Series {
	n := len(t)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if t[i].After(chpt) || t[i].Equal(chpt) {
			jump := bias + slope*t[i].Sub(chpt).Minutes()
			y[i] = jump
		}
	}
	return Series(y)
}
