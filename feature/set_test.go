package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSetSet(t *testing.T) {
	testData := map[string]struct {
		init     *Set
		f        Feature
		data     []float64
		expected *Set
	}{
		"initial set": {
			init: NewSet(),
			f:    NewEvent("blargh"),
			data: []float64{1, 2, 3, 4},
			expected: &Set{
				m: 4,
				set: map[string][]float64{
					"event_blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewEvent("blargh")},
			},
		},
		"set with more data": {
			init: &Set{
				m: 4,
				set: map[string][]float64{
					"event_blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewEvent("blargh")},
			},
			f:    NewEvent("more"),
			data: []float64{1, 2, 3, 4, 5, 6},
			expected: &Set{
				m: 6,
				set: map[string][]float64{
					"event_blargh": {1, 2, 3, 4, 0, 0},
					"event_more":   {1, 2, 3, 4, 5, 6},
				},
				labels: []Feature{
					NewEvent("blargh"),
					NewEvent("more"),
				},
			},
		},
		"set with less data": {
			init: &Set{
				m: 4,
				set: map[string][]float64{
					"event_blargh": {1, 2, 3, 4},
				},
				labels: []Feature{NewEvent("blargh")},
			},
			f:    NewEvent("less"),
			data: []float64{1, 2},
			expected: &Set{
				m: 4,
				set: map[string][]float64{
					"event_blargh": {1, 2, 3, 4},
					"event_less":   {1, 2, 0, 0},
				},
				labels: []Feature{
					NewEvent("blargh"),
					NewEvent("less"),
				},
			},
		},
		"replace existing": {
			init: &Set{
				m: 2,
				set: map[string][]float64{
					"event_blargh": {1, 2},
				},
				labels: []Feature{NewEvent("blargh")},
			},
			f:    NewEvent("blargh"),
			data: []float64{3, 4},
			expected: &Set{
				m: 2,
				set: map[string][]float64{
					"event_blargh": {3, 4},
				},
				labels: []Feature{NewEvent("blargh")},
			},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			s := td.init.Set(td.f, td.data)
			assert.Equal(t, td.expected, s)
		})
	}
}

func TestSetDelUpdate(t *testing.T) {
	s := NewSet().
		Set(NewEvent("a"), []float64{1, 0}).
		Set(NewEvent("b"), []float64{0, 1})

	s.Del(NewEvent("a"))
	require.Equal(t, 1, s.Len())
	_, exists := s.Get(NewEvent("a"))
	assert.False(t, exists)

	// deleting a missing feature is a no-op
	s.Del(NewEvent("missing"))
	assert.Equal(t, 1, s.Len())

	other := NewSet().Set(NewGrowth(GrowthIntercept), []float64{1, 1})
	s.Update(other)
	assert.Equal(t, []Feature{NewEvent("b"), NewGrowth(GrowthIntercept)}, s.Labels().Labels())
}

func TestFilterType(t *testing.T) {
	s := NewSet().
		Set(Intercept(), []float64{1, 1}).
		Set(NewChangepoint("auto_00", ChangepointCompSlope), []float64{0, 1}).
		Set(NewSeasonality("weekly", FourierCompSin, 1), []float64{0.5, -0.5})

	trend := s.FilterType(FeatureTypeGrowth, FeatureTypeChangepoint)
	assert.Equal(t, 2, trend.Len())
	_, exists := trend.Get(NewSeasonality("weekly", FourierCompSin, 1))
	assert.False(t, exists)
}

func TestMatrix(t *testing.T) {
	testData := map[string]struct {
		init     *Set
		expected *mat.Dense
	}{
		"nil set": {
			init: nil,
		},
		"empty set": {
			init: NewSet(),
		},
		"two features": {
			init: NewSet().
				Set(Intercept(), []float64{1, 1, 1}).
				Set(Linear(), []float64{0, 0.5, 1}),
			expected: mat.NewDense(3, 2, []float64{
				1, 0,
				1, 0.5,
				1, 1,
			}),
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := td.init.Matrix()
			if td.expected == nil {
				assert.Nil(t, res)
				return
			}
			assert.True(t, mat.Equal(td.expected, res))
			assert.Equal(t, [][]float64{{1, 1, 1}, {0, 0.5, 1}}, td.init.MatrixSlice())
		})
	}
}

func TestRemoveZeroOnlyFeatures(t *testing.T) {
	s := NewSet().
		Set(NewTime("valid"), []float64{0, 1, 2}).
		Set(NewTime("only_zeros_1"), []float64{0, 0, 0}).
		Set(NewTime("only_zeros_2"), []float64{0, 0, 0})

	s.RemoveZeroOnlyFeatures()

	vals, exists := s.Get(NewTime("valid"))
	assert.True(t, exists)
	assert.Equal(t, []float64{0, 1, 2}, vals)

	_, exists = s.Get(NewTime("only_zeros_1"))
	assert.False(t, exists)

	_, exists = s.Get(NewTime("only_zeros_2"))
	assert.False(t, exists)
}

func TestLabelsIndex(t *testing.T) {
	labels := NewLabels([]Feature{Intercept(), Linear()})
	idx, exists := labels.Index(Linear())
	assert.True(t, exists)
	assert.Equal(t, 1, idx)

	idx, exists = labels.Index(NewEvent("missing"))
	assert.False(t, exists)
	assert.Equal(t, -1, idx)
}
