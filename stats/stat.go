// Package stats holds descriptive statistics of a series along with outlier detection on the
// fit residual.
package stats

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

var ErrNoValues = errors.New("no non NaN values to describe")

// Summary is the count, mean, sample standard deviation, extremes and quartiles of a series
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	Q25   float64 `json:"25%"`
	Q50   float64 `json:"50%"`
	Q75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// Rows returns the summary as label and value pairs in display order
func (s Summary) Rows() ([]string, []float64) {
	return []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"},
		[]float64{float64(s.Count), s.Mean, s.Std, s.Min, s.Q25, s.Q50, s.Q75, s.Max}
}

func dropNaN(y []float64) []float64 {
	res := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			res = append(res, v)
		}
	}
	return res
}

// Describe summarizes the non NaN values of y. Quartiles linearly interpolate the empirical
// distribution. The standard deviation is NaN for a single value.
func Describe(y []float64) (Summary, error) {
	vals := dropNaN(y)
	if len(vals) == 0 {
		return Summary{}, ErrNoValues
	}
	slices.Sort(vals)

	s := Summary{
		Count: len(vals),
		Min:   vals[0],
		Max:   vals[len(vals)-1],
		Q25:   stat.Quantile(0.25, stat.LinInterp, vals, nil),
		Q50:   stat.Quantile(0.5, stat.LinInterp, vals, nil),
		Q75:   stat.Quantile(0.75, stat.LinInterp, vals, nil),
	}
	if len(vals) == 1 {
		s.Mean = vals[0]
		s.Std = math.NaN()
		return s, nil
	}
	s.Mean, s.Std = stat.MeanStdDev(vals, nil)
	return s, nil
}

// DetectOutliers returns the indices of y that land on or outside of the Tukey fences built from
// the lower and upper percentiles. NaN values are never outliers.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	yCopy := dropNaN(y)
	if len(yCopy) == 0 {
		return nil
	}
	slices.Sort(yCopy)
	lowerIdx := int(math.Floor(float64(len(yCopy)) * lowerPerc))
	upperIdx := int(math.Ceil(float64(len(yCopy)) * upperPerc))
	lowerIdx = min(lowerIdx, len(yCopy)-1)
	upperIdx = min(upperIdx, len(yCopy)-1)

	lower := yCopy[lowerIdx]
	upper := yCopy[upperIdx]
	innerRange := upper - lower
	if innerRange == 0 {
		return nil
	}
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i := 0; i < len(y); i++ {
		if math.IsNaN(y[i]) {
			continue
		}
		if y[i] >= upper || y[i] <= lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
