package forecast

import "gonum.org/v1/gonum/floats"

// Components holds the decomposition of a prediction. Seasonality is keyed by the seasonality
// name, e.g. weekly. For log fits the trend is in the original units while seasonality and events
// are relative multipliers of the trend.
type Components struct {
	Trend       []float64            `json:"trend"`
	Seasonality map[string][]float64 `json:"seasonality"`
	Event       []float64            `json:"event"`
}

// SeasonalityTotal returns the sum of every seasonal component
func (c Components) SeasonalityTotal() []float64 {
	res := make([]float64, len(c.Trend))
	for _, s := range c.Seasonality {
		if len(s) == len(res) {
			floats.Add(res, s)
		}
	}
	return res
}
