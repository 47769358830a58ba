package options

import (
	"log/slog"
	"sort"
	"time"
)

const (
	DefaultYearlyOrders = 10
	DefaultWeeklyOrders = 3
	DefaultDailyOrders  = 4

	// YearPeriod is the mean length of a Gregorian year in leap year aware units
	YearPeriod = time.Duration(365.25 * 24 * float64(time.Hour))
)

// SeasonalityOptions configures the number of seasonality components to fit for.
type SeasonalityOptions struct {
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

// NewDefaultSeasonalityOptions generates a default seasonality config with yearly, weekly and
// daily seasonal components
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{
		SeasonalityConfigs: []SeasonalityConfig{
			NewYearlySeasonalityConfig(DefaultYearlyOrders),
			NewWeeklySeasonalityConfig(DefaultWeeklyOrders),
			NewDailySeasonalityConfig(DefaultDailyOrders),
		},
	}
}

// Names returns the names of the configured seasonalities in order
func (s SeasonalityOptions) Names() []string {
	names := make([]string, 0, len(s.SeasonalityConfigs))
	for _, cfg := range s.SeasonalityConfigs {
		names = append(names, cfg.Name)
	}
	return names
}

func (s *SeasonalityOptions) removeDuplicates() {
	// sort seasonality configs so we can find duplicate periods and remove them
	optSeasConfigs := make([]SeasonalityConfig, len(s.SeasonalityConfigs))
	copy(optSeasConfigs, s.SeasonalityConfigs)
	sort.SliceStable(optSeasConfigs, func(i, j int) bool {
		if optSeasConfigs[i].Period != optSeasConfigs[j].Period {
			return optSeasConfigs[i].Period < optSeasConfigs[j].Period
		}
		if optSeasConfigs[i].Orders != optSeasConfigs[j].Orders {
			return optSeasConfigs[i].Orders > optSeasConfigs[j].Orders
		}
		return optSeasConfigs[i].Name < optSeasConfigs[j].Name
	})

	validated := make([]SeasonalityConfig, 0, len(optSeasConfigs))
	var lastValidPeriod time.Duration
	for _, seasCfg := range optSeasConfigs {
		if seasCfg.Period > 0 && seasCfg.Period > lastValidPeriod && seasCfg.Name != "" && seasCfg.Orders > 0 {
			validated = append(validated, seasCfg)
			lastValidPeriod = seasCfg.Period
		}
	}
	s.SeasonalityConfigs = validated
}

// FitTrainingWindow drops seasonalities that cannot be estimated from a training window of the
// given span sampled at freq and trims the orders of the rest below the Nyquist limit. Each
// dropped seasonality is logged.
func (s *SeasonalityOptions) FitTrainingWindow(span, freq time.Duration) {
	s.removeDuplicates()

	kept := make([]SeasonalityConfig, 0, len(s.SeasonalityConfigs))
	for _, cfg := range s.SeasonalityConfigs {
		if span < cfg.Period {
			slog.Warn("dropping seasonality longer than the training window",
				"name", cfg.Name, "period", cfg.Period.String(), "window", span.String())
			continue
		}
		if freq > 0 && cfg.Period <= 2*freq {
			slog.Warn("dropping seasonality not resolvable at the sampling frequency",
				"name", cfg.Name, "period", cfg.Period.String(), "frequency", freq.String())
			continue
		}
		if freq > 0 {
			// order k resolves a period of Period/k which must stay above two samples
			maxOrder := int((cfg.Period - 1) / (2 * freq))
			if cfg.Orders > maxOrder {
				slog.Warn("trimming seasonality orders to the sampling frequency",
					"name", cfg.Name, "orders", cfg.Orders, "max_orders", maxOrder)
				cfg.Orders = maxOrder
			}
		}
		kept = append(kept, cfg)
	}
	s.SeasonalityConfigs = kept
}

// colinearConfigOrders returns for each config the orders whose frequency matches a harmonic of
// a shorter seasonality, e.g. weekly order 7 is the same wave as daily order 1.
func (s SeasonalityOptions) colinearConfigOrders() map[string]map[int]struct{} {
	res := make(map[string]map[int]struct{})
	for _, long := range s.SeasonalityConfigs {
		for _, short := range s.SeasonalityConfigs {
			if short.Period >= long.Period {
				continue
			}
			for k := 1; k <= long.Orders; k++ {
				num := time.Duration(k) * short.Period
				if num%long.Period != 0 {
					continue
				}
				if j := int(num / long.Period); j >= 1 && j <= short.Orders {
					if res[long.Name] == nil {
						res[long.Name] = make(map[int]struct{})
					}
					res[long.Name][k] = struct{}{}
				}
			}
		}
	}
	return res
}

// SeasonalityConfig represents a single seasonality configuration to model. This will generate
// Fourier series of the specified period and number of orders. E.g. a period of 24*time.Hour
// with 3 orders will create 6 Fourier series of order 1, 2, 3 and for the sine/cosine components
// where order 1 will have a period of 1 day and order 2 will have a period of 12 hours.
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}

	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// NewDailySeasonalityConfig creates a daily seasonality config given a specified number of orders
func NewDailySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasDaily, 24*time.Hour, orders)
}

// NewWeeklySeasonalityConfig creates a weekly seasonality config given a specified number of orders
func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasWeekly, 7*24*time.Hour, orders)
}

// NewYearlySeasonalityConfig creates a yearly seasonality config given a specified number of orders
func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasYearly, YearPeriod, orders)
}

func (s SeasonalityConfig) filterOutColinearOrders(colinear map[string]map[int]struct{}) []int {
	orders := make([]int, 0, s.Orders)
	for k := 1; k <= s.Orders; k++ {
		if _, exists := colinear[s.Name][k]; exists {
			continue
		}
		orders = append(orders, k)
	}
	return orders
}
