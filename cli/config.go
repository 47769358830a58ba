package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-demandcast"
)

// Default values for configuration.
const (
	DefaultDemandDays        = 100
	DefaultProductionHours   = 720
	DefaultHorizon           = 30
	DefaultProductionHorizon = 48
	DefaultWorkers           = forecaster.DefaultParallelization
	DefaultInput             = "datos_produccion.csv"
	DefaultLogLevel          = "info"
	DefaultTailRows          = 5
)

// DefaultSmoothness is the changepoint prior scale list compared by the sweep command
var DefaultSmoothness = []string{"0.001", "0.01", "0.1", "0.5"}

var ErrInvalidFlag = errors.New("invalid flag value")

// Config holds the validated runtime configuration shared by every command
type Config struct {
	Seed      uint64
	OutputDir string
	DBPath    string
	HTML      bool
	LogLevel  slog.Level

	DemandDays        int
	ProductionHours   int
	Horizon           int
	ProductionHorizon int
	Mode              forecaster.Mode
	IntervalWidth     float64
	Holidays          string

	Smoothness []float64
	Workers    int

	Input   string
	Parquet bool
	Sample  int
}

// ConfigRawInput holds the raw values merged by viper from defaults, the config file, the
// environment and flags
type ConfigRawInput struct {
	Seed      uint64 `mapstructure:"seed"`
	OutputDir string `mapstructure:"output-dir"`
	DBPath    string `mapstructure:"db"`
	HTML      bool   `mapstructure:"html"`
	LogLevel  string `mapstructure:"log-level"`

	DemandDays        int     `mapstructure:"demand-days"`
	ProductionHours   int     `mapstructure:"production-hours"`
	Horizon           int     `mapstructure:"horizon"`
	ProductionHorizon int     `mapstructure:"production-horizon"`
	Mode              string  `mapstructure:"mode"`
	IntervalWidth     float64 `mapstructure:"interval-width"`
	Holidays          string  `mapstructure:"holidays"`

	Smoothness []string `mapstructure:"smoothness"`
	Workers    int      `mapstructure:"workers"`

	Input   string `mapstructure:"input"`
	Parquet bool   `mapstructure:"parquet"`
	Sample  int    `mapstructure:"sample"`
}

func invalidFlag(flag string, format string, args ...any) error {
	return fmt.Errorf("--%s %s, %w", flag, fmt.Sprintf(format, args...), ErrInvalidFlag)
}

// ProcessAndValidate checks the raw inputs and fills cfg
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	cfg.Seed = input.Seed

	cfg.OutputDir = filepath.Clean(input.OutputDir)
	if input.OutputDir == "" {
		cfg.OutputDir = "."
	}
	cfg.DBPath = input.DBPath
	cfg.HTML = input.HTML

	if err := cfg.LogLevel.UnmarshalText([]byte(input.LogLevel)); err != nil {
		return invalidFlag("log-level", "must be debug, info, warn or error, got %q", input.LogLevel)
	}

	if input.DemandDays < 2 {
		return invalidFlag("demand-days", "must be at least 2, got %d", input.DemandDays)
	}
	cfg.DemandDays = input.DemandDays
	if input.ProductionHours < 2 {
		return invalidFlag("production-hours", "must be at least 2, got %d", input.ProductionHours)
	}
	cfg.ProductionHours = input.ProductionHours

	if input.Horizon < 0 {
		return invalidFlag("horizon", "cannot be negative, got %d", input.Horizon)
	}
	cfg.Horizon = input.Horizon
	if input.ProductionHorizon < 0 {
		return invalidFlag("production-horizon", "cannot be negative, got %d", input.ProductionHorizon)
	}
	cfg.ProductionHorizon = input.ProductionHorizon

	cfg.Mode = forecaster.Mode(strings.ToLower(input.Mode))
	cfg.IntervalWidth = input.IntervalWidth
	cfg.Holidays = strings.ToLower(input.Holidays)
	if err := cfg.ForecastOptions().Validate(); err != nil {
		return err
	}

	smoothness, err := parseSmoothness(input.Smoothness)
	if err != nil {
		return err
	}
	cfg.Smoothness = smoothness

	if input.Workers <= 0 {
		return invalidFlag("workers", "must be greater than 0, got %d", input.Workers)
	}
	cfg.Workers = input.Workers

	cfg.Input = input.Input
	cfg.Parquet = input.Parquet
	if input.Sample < 0 {
		return invalidFlag("sample", "cannot be negative, got %d", input.Sample)
	}
	cfg.Sample = input.Sample
	return nil
}

// parseSmoothness accepts entries that are themselves comma separated so both a yaml list and
// a single flag value work
func parseSmoothness(raw []string) ([]float64, error) {
	values := make([]float64, 0, len(raw))
	for _, entry := range raw {
		for _, field := range strings.Split(entry, ",") {
			field = strings.Trim(strings.TrimSpace(field), "[]")
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, invalidFlag("smoothness", "has a non numeric value %q", field)
			}
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, invalidFlag("smoothness", "needs at least one value")
	}
	return values, nil
}

// ForecastOptions returns the forecaster options for the configured mode, interval and holidays
func (c *Config) ForecastOptions() *forecaster.Options {
	opt := forecaster.NewDefaultOptions()
	opt.Mode = c.Mode
	opt.IntervalWidth = c.IntervalWidth
	opt.Holidays = c.Holidays
	opt.Parallelization = c.Workers
	return opt
}

// DemandOptions are the forecast options of the daily demand series which only carries a
// weekly pattern
func (c *Config) DemandOptions() *forecaster.Options {
	opt := c.ForecastOptions()
	opt.Yearly = false
	opt.Daily = false
	return opt
}

// ProductionOptions are the forecast options of the hourly production series with daily and
// weekly patterns
func (c *Config) ProductionOptions() *forecaster.Options {
	opt := c.ForecastOptions()
	opt.Yearly = false
	return opt
}

// OutputPath joins name onto the output directory
func (c *Config) OutputPath(name string) string {
	return filepath.Join(c.OutputDir, name)
}

// Start is the first timestamp of every generated series
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Forecast defaults shared with the forecaster options
const (
	DefaultMode          = forecaster.ModeAdditive
	DefaultIntervalWidth = forecaster.DefaultIntervalWidth
)
