package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		expected Summary
		err      error
	}{
		"even": {
			y:        []float64{4, 1, 3, 2},
			expected: Summary{Count: 4, Mean: 2.5, Std: math.Sqrt(5.0 / 3.0), Min: 1, Q25: 1, Q50: 2, Q75: 3, Max: 4},
		},
		"odd with nan": {
			y:        []float64{5, math.NaN(), 1, 4, 2, 3},
			expected: Summary{Count: 5, Mean: 3, Std: math.Sqrt(2.5), Min: 1, Q25: 1.25, Q50: 2.5, Q75: 3.75, Max: 5},
		},
		"empty": {
			y:   []float64{math.NaN()},
			err: ErrNoValues,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := Describe(td.y)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, td.expected.Count, res.Count)
			assert.InDelta(t, td.expected.Mean, res.Mean, 1e-9)
			assert.InDelta(t, td.expected.Std, res.Std, 1e-9)
			assert.Equal(t, td.expected.Min, res.Min)
			assert.InDelta(t, td.expected.Q25, res.Q25, 1e-9)
			assert.InDelta(t, td.expected.Q50, res.Q50, 1e-9)
			assert.InDelta(t, td.expected.Q75, res.Q75, 1e-9)
			assert.Equal(t, td.expected.Max, res.Max)
		})
	}

	res, err := Describe([]float64{7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, res.Mean)
	assert.True(t, math.IsNaN(res.Std))

	labels, vals := res.Rows()
	assert.Len(t, labels, 8)
	assert.Equal(t, 1.0, vals[0])
}

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y           []float64
		lower       float64
		upper       float64
		tukeyFactor float64
		expected    []int
	}{
		"spikes": {
			y:           []float64{1, 2, 1, 2, 50, 1, 2, -40, 1, 2},
			lower:       0.25,
			upper:       0.75,
			tukeyFactor: 1.5,
			expected:    []int{4, 7},
		},
		"none": {
			y:           []float64{1, 2, 3, 4, 5, 6, 7, 8},
			lower:       0.25,
			upper:       0.75,
			tukeyFactor: 1.5,
		},
		"nan ignored": {
			y:           []float64{1, 2, math.NaN(), 1, 2, 100, 1, 2, 1, 2},
			lower:       0.25,
			upper:       0.75,
			tukeyFactor: 1.0,
			expected:    []int{5},
		},
		"constant": {
			y:           []float64{3, 3, 3, 3},
			lower:       0.1,
			upper:       0.9,
			tukeyFactor: 1.0,
		},
		"full range percentiles": {
			y:           []float64{1, 2, 3},
			lower:       0.0,
			upper:       1.0,
			tukeyFactor: 0.0,
			expected:    []int{0, 2},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := DetectOutliers(td.y, td.lower, td.upper, td.tukeyFactor)
			assert.Equal(t, td.expected, res)
		})
	}
}
