package options

import (
	"testing"
	"time"

	"github.com/aouyang1/go-demandcast/feature"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateAutoChangepoints(t *testing.T) {
	testData := map[string]struct {
		n        int
		expected []int
	}{
		"two points":  {2, nil},
		"ten points":  {10, []int{1, 2, 3, 4, 5, 6, 7}},
		"five points": {5, []int{1, 2, 3}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			tSeries := timedataset.GenerateRange(testStart, td.n, timedataset.Daily)
			opt := NewDefaultChangepointOptions()
			chpts := opt.GenerateAutoChangepoints(tSeries)
			require.Len(t, chpts, len(td.expected))
			for i, idx := range td.expected {
				assert.Equal(t, tSeries[idx], chpts[i].T)
			}
			assert.Equal(t, chpts, opt.Changepoints)
		})
	}
}

func TestGenerateAutoChangepointsDefaultCount(t *testing.T) {
	tSeries := timedataset.GenerateRange(testStart, 100, timedataset.Daily)
	opt := NewDefaultChangepointOptions()
	chpts := opt.GenerateAutoChangepoints(tSeries)
	require.Len(t, chpts, DefaultAutoNumChangepoints)

	// placed over the first 80 points
	assert.Equal(t, tSeries[3], chpts[0].T)
	assert.Equal(t, tSeries[79], chpts[len(chpts)-1].T)
	assert.Equal(t, "auto_00", chpts[0].Name)
	for i := 1; i < len(chpts); i++ {
		assert.True(t, chpts[i].T.After(chpts[i-1].T))
	}
}

func TestChangepointGenerateFeatures(t *testing.T) {
	tSeries := timedataset.GenerateRange(testStart, 5, timedataset.Daily)
	epoch := feature.NewTime(LabelTimeEpoch).Generate(tSeries)
	end := tSeries[4]

	opt := ChangepointOptions{
		Changepoints: []Changepoint{
			NewChangepoint("mid", tSeries[2]),
			NewChangepoint("at_start", tSeries[0]),
			NewChangepoint("after_end", end.Add(24*time.Hour)),
		},
	}
	feat := opt.GenerateFeatures(epoch, tSeries[0], end)
	require.Equal(t, 1, feat.Len())

	res, exists := feat.Get(feature.NewChangepoint("mid", feature.ChangepointCompSlope))
	require.True(t, exists)
	assert.Equal(t, []float64{0, 0, 0, 0.25, 0.5}, res)
}

func TestFitTrainingWindow(t *testing.T) {
	testData := map[string]struct {
		span     time.Duration
		freq     time.Duration
		configs  []SeasonalityConfig
		expected []SeasonalityConfig
	}{
		"daily demand over 100 days": {
			span:    99 * 24 * time.Hour,
			freq:    24 * time.Hour,
			configs: NewDefaultSeasonalityOptions().SeasonalityConfigs,
			expected: []SeasonalityConfig{
				NewWeeklySeasonalityConfig(3),
			},
		},
		"hourly production over 30 days": {
			span:    719 * time.Hour,
			freq:    time.Hour,
			configs: NewDefaultSeasonalityOptions().SeasonalityConfigs,
			expected: []SeasonalityConfig{
				NewDailySeasonalityConfig(4),
				NewWeeklySeasonalityConfig(3),
			},
		},
		"two years daily": {
			span:    730 * 24 * time.Hour,
			freq:    24 * time.Hour,
			configs: NewDefaultSeasonalityOptions().SeasonalityConfigs,
			expected: []SeasonalityConfig{
				NewWeeklySeasonalityConfig(3),
				NewYearlySeasonalityConfig(10),
			},
		},
		"trim weekly orders to nyquist": {
			span:    99 * 24 * time.Hour,
			freq:    24 * time.Hour,
			configs: []SeasonalityConfig{NewWeeklySeasonalityConfig(6)},
			expected: []SeasonalityConfig{
				NewWeeklySeasonalityConfig(3),
			},
		},
		"duplicate periods keep the most orders": {
			span: 99 * 24 * time.Hour,
			freq: time.Hour,
			configs: []SeasonalityConfig{
				NewSeasonalityConfig("a", 24*time.Hour, 2),
				NewSeasonalityConfig("b", 24*time.Hour, 5),
				NewSeasonalityConfig("empty", 48*time.Hour, 0),
			},
			expected: []SeasonalityConfig{
				NewSeasonalityConfig("b", 24*time.Hour, 5),
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt := SeasonalityOptions{SeasonalityConfigs: td.configs}
			opt.FitTrainingWindow(td.span, td.freq)
			assert.Equal(t, td.expected, opt.SeasonalityConfigs)
		})
	}
}

func TestGenerateFourierFeatures(t *testing.T) {
	tSeries := timedataset.GenerateRange(testStart, 24*14, timedataset.Hourly)
	opt := NewDefaultOptions()
	opt.SeasonalityOptions = SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			NewDailySeasonalityConfig(2),
			NewWeeklySeasonalityConfig(8),
		},
	}

	tFeat, _ := opt.GenerateTimeFeatures(tSeries, tSeries[0], tSeries[len(tSeries)-1])
	x, err := opt.GenerateFourierFeatures(tFeat)
	require.NoError(t, err)

	// weekly order 7 is the daily order 1 wave
	assert.Equal(t, 2*2+2*7, x.Len())
	_, exists := x.Get(feature.NewSeasonality(LabelSeasWeekly, feature.FourierCompSin, 7))
	assert.False(t, exists)
	_, exists = x.Get(feature.NewSeasonality(LabelSeasWeekly, feature.FourierCompSin, 8))
	assert.True(t, exists)

	_, err = opt.GenerateFourierFeatures(feature.NewSet())
	assert.ErrorIs(t, err, ErrUnknownTimeFeature)
}

func TestGenerateTimeFeatures(t *testing.T) {
	tSeries := timedataset.GenerateRange(testStart, 3, timedataset.Daily)
	opt := NewDefaultOptions()

	tFeat, growth := opt.GenerateTimeFeatures(tSeries, tSeries[0], tSeries[2])
	_, exists := tFeat.Get(feature.NewTime(LabelTimeEpoch))
	assert.True(t, exists)

	intercept, exists := growth.Get(feature.Intercept())
	require.True(t, exists)
	assert.Equal(t, []float64{1, 1, 1}, intercept)

	linear, exists := growth.Get(feature.Linear())
	require.True(t, exists)
	assert.Equal(t, []float64{0, 0.5, 1}, linear)

	chpt, err := opt.GenerateChangepointFeatures(tFeat, tSeries[0], tSeries[2])
	require.NoError(t, err)
	assert.Equal(t, 0, chpt.Len())

	_, err = opt.GenerateChangepointFeatures(feature.NewSet(), tSeries[0], tSeries[2])
	assert.ErrorIs(t, err, ErrUnknownTimeFeature)
}

func TestNewLassoOptions(t *testing.T) {
	opt := NewDefaultOptions()
	opt.ChangepointOptions.PriorScale = 0.5
	opt.EventOptions.PriorScale = 10

	labels := []feature.Feature{
		feature.Intercept(),
		feature.Linear(),
		feature.NewChangepoint("auto_00", feature.ChangepointCompSlope),
		feature.NewSeasonality(LabelSeasWeekly, feature.FourierCompSin, 1),
		feature.NewEvent("christmas_day"),
	}
	lassoOpt := opt.NewLassoOptions(2.0, labels)
	assert.Equal(t, 2.0, lassoOpt.Lambda)
	assert.False(t, lassoOpt.FitIntercept)
	assert.Equal(t, DefaultIterations, lassoOpt.Iterations)
	assert.Equal(t, DefaultTolerance, lassoOpt.Tolerance)
	assert.Equal(t, []float64{0, 0, 1, 0, 0.05}, lassoOpt.PenaltyFactors)
}

func TestOptionsCopy(t *testing.T) {
	opt := NewDefaultOptions()
	opt.EventOptions.Events = []Event{NewEvent("shutdown", testStart, testStart.Add(time.Hour))}

	cp := opt.Copy()
	cp.ChangepointOptions.GenerateAutoChangepoints(timedataset.GenerateRange(testStart, 10, timedataset.Daily))
	cp.SeasonalityOptions.SeasonalityConfigs[0].Orders = 1
	cp.EventOptions.Events[0].Name = "changed"

	assert.Nil(t, opt.ChangepointOptions.Changepoints)
	assert.Equal(t, DefaultYearlyOrders, opt.SeasonalityOptions.SeasonalityConfigs[0].Orders)
	assert.Equal(t, "shutdown", opt.EventOptions.Events[0].Name)
	assert.Nil(t, (*Options)(nil).Copy())
}
