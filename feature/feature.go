// Package feature contains the named regressors of the linear forecast model along with the
// set used to assemble them into a design matrix.
package feature

type FeatureType int

const (
	FeatureTypeChangepoint FeatureType = iota
	FeatureTypeSeasonality
	FeatureTypeTime
	FeatureTypeEvent
	FeatureTypeGrowth
)

func (f FeatureType) String() string {
	switch f {
	case FeatureTypeChangepoint:
		return "changepoint"
	case FeatureTypeSeasonality:
		return "seasonality"
	case FeatureTypeTime:
		return "time"
	case FeatureTypeEvent:
		return "event"
	case FeatureTypeGrowth:
		return "growth"
	}
	return "unknown"
}

// Feature is a single named regressor. String is unique per feature and is used to key the
// feature in a set and in a serialized model.
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
	UnmarshalJSON([]byte) error
}
