package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrInvalidWindow   = errors.New("window must be at least 1")
	ErrUnknownPeriod   = errors.New("unknown resample period")
	ErrEmptySliceRange = errors.New("slice range selects no points")
)

// ResamplePeriod selects the calendar bins used by Resample
type ResamplePeriod int

const (
	// Weekly bins end on Sunday and are labelled with that Sunday
	Weekly ResamplePeriod = iota
	// MonthEnd bins are calendar months labelled with the last day of the month
	MonthEnd
)

// Aggregation reduces the values of one bin
type Aggregation func(y []float64) float64

// Sum of the bin values. An empty bin sums to 0.
func Sum(y []float64) float64 {
	return floats.Sum(y)
}

// Mean of the bin values. An empty bin is NaN.
func Mean(y []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	return stat.Mean(y, nil)
}

// Resample groups the series into calendar bins and reduces each bin with agg. Every bin
// between the first and last point is emitted, including empty ones.
func (td *TimeDataset) Resample(period ResamplePeriod, agg Aggregation) (*TimeDataset, error) {
	if td.Len() == 0 {
		return nil, ErrNoTrainingData
	}

	var label func(time.Time) time.Time
	var next func(time.Time) time.Time
	switch period {
	case Weekly:
		label = weekEnd
		next = func(l time.Time) time.Time { return l.AddDate(0, 0, 7) }
	case MonthEnd:
		label = monthEnd
		next = func(l time.Time) time.Time { return monthEnd(l.AddDate(0, 0, 1)) }
	default:
		return nil, fmt.Errorf("period %d, %w", period, ErrUnknownPeriod)
	}

	first := label(td.T[0])
	last := label(td.T[len(td.T)-1])

	var binT []time.Time
	var binY []float64
	idx := 0
	for l := first; !l.After(last); l = next(l) {
		var vals []float64
		for idx < len(td.T) && label(td.T[idx]).Equal(l) {
			vals = append(vals, td.Y[idx])
			idx++
		}
		binT = append(binT, l)
		binY = append(binY, agg(vals))
	}
	return &TimeDataset{T: binT, Y: binY}, nil
}

func weekEnd(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (7 - int(day.Weekday())) % 7
	return day.AddDate(0, 0, offset)
}

func monthEnd(t time.Time) time.Time {
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	return firstOfNext.AddDate(0, 0, -1)
}

// RollingMean returns the trailing mean over window points. The first window-1 values are NaN.
func (td *TimeDataset) RollingMean(window int) (*TimeDataset, error) {
	if window < 1 {
		return nil, fmt.Errorf("got window of %d, %w", window, ErrInvalidWindow)
	}
	res := td.Copy()
	for i := range res.Y {
		if i+1 < window {
			res.Y[i] = math.NaN()
			continue
		}
		res.Y[i] = stat.Mean(td.Y[i+1-window:i+1], nil)
	}
	return res, nil
}

// Diff returns the first difference where the first value is NaN
func (td *TimeDataset) Diff() *TimeDataset {
	res := td.Copy()
	for i := range res.Y {
		if i == 0 {
			res.Y[i] = math.NaN()
			continue
		}
		res.Y[i] = td.Y[i] - td.Y[i-1]
	}
	return res
}

// Shift moves values forward by n positions keeping the timestamps. Positive n lags the
// series leaving NaN at the start while negative n leads it leaving NaN at the end.
func (td *TimeDataset) Shift(n int) *TimeDataset {
	res := td.Copy()
	for i := range res.Y {
		src := i - n
		if src < 0 || src >= len(td.Y) {
			res.Y[i] = math.NaN()
			continue
		}
		res.Y[i] = td.Y[src]
	}
	return res
}

// Slice returns the points with start <= t <= end
func (td *TimeDataset) Slice(start, end time.Time) (*TimeDataset, error) {
	var t []time.Time
	var y []float64
	for i, tPnt := range td.T {
		if tPnt.Before(start) || tPnt.After(end) {
			continue
		}
		t = append(t, tPnt)
		y = append(y, td.Y[i])
	}
	if len(t) == 0 {
		return nil, fmt.Errorf("no points between %s and %s, %w", start, end, ErrEmptySliceRange)
	}
	return &TimeDataset{T: t, Y: y}, nil
}
