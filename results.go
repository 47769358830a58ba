package forecaster

import (
	"slices"
	"strings"
	"time"

	"github.com/aouyang1/go-demandcast/forecast"
	"github.com/aouyang1/go-demandcast/forecast/options"
)

const (
	ComponentTrend    = "trend"
	ComponentHolidays = "holidays"
)

// Results holds one forecast, lower and upper value per timestamp along with the components of
// the series and uncertainty models
type Results struct {
	T        []time.Time `json:"time"`
	Forecast []float64   `json:"forecast"`
	Upper    []float64   `json:"upper"`
	Lower    []float64   `json:"lower"`

	SeriesComponents   forecast.Components `json:"series_components"`
	ResidualComponents forecast.Components `json:"residual_components"`

	hasEvents bool
}

// Len returns the number of predicted timestamps
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.T)
}

// Components returns the trend, every fitted seasonal term by name and the holiday effect when
// events or holidays were configured
func (r *Results) Components() map[string][]float64 {
	if r == nil {
		return nil
	}
	comps := map[string][]float64{
		ComponentTrend: slices.Clone(r.SeriesComponents.Trend),
	}
	for name, s := range r.SeriesComponents.Seasonality {
		comps[name] = slices.Clone(s)
	}
	if r.hasEvents {
		comps[ComponentHolidays] = slices.Clone(r.SeriesComponents.Event)
	}
	return comps
}

// Decompose splits the results into its named components
func Decompose(res *Results) map[string][]float64 {
	return res.Components()
}

var componentRank = map[string]int{
	ComponentTrend:          0,
	options.LabelSeasYearly: 1,
	options.LabelSeasWeekly: 2,
	options.LabelSeasDaily:  3,
	ComponentHolidays:       5,
}

// ComponentNames orders the component names as trend, yearly, weekly, daily, any other
// seasonality by name and finally holidays
func ComponentNames(comps map[string][]float64) []string {
	names := make([]string, 0, len(comps))
	for name := range comps {
		names = append(names, name)
	}
	rank := func(name string) int {
		if r, exists := componentRank[name]; exists {
			return r
		}
		return 4
	}
	slices.SortFunc(names, func(a, b string) int {
		if ra, rb := rank(a), rank(b); ra != rb {
			return ra - rb
		}
		return strings.Compare(a, b)
	})
	return names
}
