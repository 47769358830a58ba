package feature

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Set holds the data of each feature keyed by the string representation of the feature.
// Features keep their insertion order which is also the column order of the matrix form.
// Every feature is padded with zeros to the longest feature in the set.
type Set struct {
	m      int
	set    map[string][]float64
	labels []Feature
}

func NewSet() *Set {
	return &Set{
		set: make(map[string][]float64),
	}
}

// Len returns the number of features in the set
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.labels)
}

// Rows returns the number of observations of every feature
func (s *Set) Rows() int {
	if s == nil {
		return 0
	}
	return s.m
}

// Set stores the feature data replacing any previous data for the same feature
func (s *Set) Set(f Feature, data []float64) *Set {
	if s == nil {
		return nil
	}
	key := f.String()
	if _, exists := s.set[key]; !exists {
		s.labels = append(s.labels, f)
	}

	if len(data) > s.m {
		s.m = len(data)
		for k, v := range s.set {
			if len(v) < s.m {
				s.set[k] = append(v, make([]float64, s.m-len(v))...)
			}
		}
	}
	vals := make([]float64, s.m)
	copy(vals, data)
	s.set[key] = vals
	return s
}

// Get returns the feature data and whether the feature exists
func (s *Set) Get(f Feature) ([]float64, bool) {
	if s == nil {
		return nil, false
	}
	data, exists := s.set[f.String()]
	return data, exists
}

// Del removes the feature from the set
func (s *Set) Del(f Feature) *Set {
	if s == nil {
		return nil
	}
	key := f.String()
	if _, exists := s.set[key]; !exists {
		return s
	}
	delete(s.set, key)
	labels := make([]Feature, 0, len(s.labels)-1)
	for _, l := range s.labels {
		if l.String() == key {
			continue
		}
		labels = append(labels, l)
	}
	s.labels = labels
	return s
}

// Update sets every feature of other into this set
func (s *Set) Update(other *Set) *Set {
	if s == nil {
		return nil
	}
	if other == nil {
		return s
	}
	for _, f := range other.labels {
		s.Set(f, other.set[f.String()])
	}
	return s
}

// Labels returns the features in column order
func (s *Set) Labels() *Labels {
	if s == nil {
		return nil
	}
	labels := make([]Feature, len(s.labels))
	copy(labels, s.labels)
	return NewLabels(labels)
}

// FilterType returns a new set with only the features of the given types
func (s *Set) FilterType(types ...FeatureType) *Set {
	res := NewSet()
	if s == nil {
		return res
	}
	for _, f := range s.labels {
		for _, ft := range types {
			if f.Type() == ft {
				res.Set(f, s.set[f.String()])
				break
			}
		}
	}
	return res
}

// RemoveZeroOnlyFeatures drops features that never take a non zero value, e.g. a changepoint
// that lies after every observation.
func (s *Set) RemoveZeroOnlyFeatures() *Set {
	if s == nil {
		return nil
	}
	for _, f := range s.Labels().Labels() {
		data := s.set[f.String()]
		if len(data) == 0 || (floats.Min(data) == 0 && floats.Max(data) == 0) {
			s.Del(f)
		}
	}
	return s
}

// Matrix returns the set as an m x n matrix with one row per observation and one column
// per feature.
func (s *Set) Matrix() *mat.Dense {
	if s == nil || len(s.labels) == 0 || s.m == 0 {
		return nil
	}
	n := len(s.labels)
	mx := mat.NewDense(s.m, n, nil)
	for j, f := range s.labels {
		mx.SetCol(j, s.set[f.String()])
	}
	return mx
}

// MatrixSlice returns the feature columns in column order
func (s *Set) MatrixSlice() [][]float64 {
	if s == nil || len(s.labels) == 0 {
		return nil
	}
	obs := make([][]float64, 0, len(s.labels))
	for _, f := range s.labels {
		obs = append(obs, s.set[f.String()])
	}
	return obs
}
