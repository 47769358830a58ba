package feature

// Labels is the ordered list of model columns. Position i names the coefficient at index i
// so a trained model can be saved and reloaded with its terms intact.
type Labels struct {
	idx    map[string]int
	labels []Feature
}

// NewLabels indexes the columns by their encoded name
func NewLabels(labels []Feature) *Labels {
	idx := make(map[string]int, len(labels))
	for i, f := range labels {
		idx[f.String()] = i
	}
	return &Labels{
		labels: labels,
		idx:    idx,
	}
}

// Len is the number of model columns
func (l *Labels) Len() int {
	if l == nil {
		return 0
	}
	return len(l.labels)
}

// Labels returns a copy of the columns in coefficient order
func (l *Labels) Labels() []Feature {
	if l == nil {
		return nil
	}
	labels := make([]Feature, len(l.labels))
	copy(labels, l.labels)
	return labels
}

// Index is the coefficient position of a column, -1 when the model has no such term
func (l *Labels) Index(label Feature) (int, bool) {
	if l == nil {
		return -1, false
	}
	idx, exists := l.idx[label.String()]
	if !exists {
		return -1, false
	}
	return idx, true
}
