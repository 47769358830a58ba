package options

import (
	"fmt"
	"math"
	"time"

	"github.com/aouyang1/go-demandcast/feature"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultAutoNumChangepoints = 25
	DefaultChangepointRange    = 0.8
	DefaultChangepointPrior    = 0.05
)

// Changepoint describes a point in time where the ongoing trend is allowed to change slope
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the trend changepoints. With auto-detection enabled, up to
// AutoNumChangepoints are evenly placed over the first Range fraction of the training points.
// PriorScale controls how flexible the trend is where larger values let more changepoints
// survive the penalized fit.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`
	Range               float64       `json:"range"`
	PriorScale          float64       `json:"prior_scale"`
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultAutoNumChangepoints,
		Range:               DefaultChangepointRange,
		PriorScale:          DefaultChangepointPrior,
	}
}

// GenerateAutoChangepoints places changepoints on training points evenly spread over the first
// Range fraction of the history. The generated changepoints replace any existing ones.
func (c *ChangepointOptions) GenerateAutoChangepoints(t []time.Time) []Changepoint {
	if !c.Auto {
		return c.Changepoints
	}
	if c.AutoNumChangepoints <= 0 {
		c.AutoNumChangepoints = DefaultAutoNumChangepoints
	}
	if c.Range <= 0 || c.Range > 1 {
		c.Range = DefaultChangepointRange
	}

	histSize := int(math.Floor(float64(len(t)) * c.Range))
	n := min(c.AutoNumChangepoints, histSize-1)
	if n < 1 {
		c.Changepoints = nil
		return nil
	}

	idx := floats.Span(make([]float64, n+1), 0, float64(histSize-1))
	chpts := make([]Changepoint, 0, n)
	for i, v := range idx[1:] {
		chpts = append(chpts, NewChangepoint(fmt.Sprintf("auto_%02d", i), t[int(math.Round(v))]))
	}

	c.Changepoints = chpts
	return chpts
}

// GenerateFeatures builds one slope ramp per changepoint. Changepoints outside the training
// window are skipped since they would never be observed during the fit.
func (c ChangepointOptions) GenerateFeatures(epoch []float64, trainStart, trainEnd time.Time) *feature.Set {
	feat := feature.NewSet()
	for i, chpt := range c.Changepoints {
		if chpt.T.After(trainEnd) || !chpt.T.After(trainStart) {
			continue
		}
		name := chpt.Name
		if name == "" {
			name = fmt.Sprintf("%02d", i)
		}
		chptFeat := feature.NewChangepoint(name, feature.ChangepointCompSlope)
		feat.Set(chptFeat, chptFeat.Generate(epoch, chpt.T, trainStart, trainEnd))
	}
	return feat
}
