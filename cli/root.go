// Package cli defines the demandcast command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aouyang1/go-demandcast/store"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags are set at build time.
var (
	version = "dev"
	commit  = "none"
)

var ErrBranchFailed = errors.New("one or more branches failed")

var (
	successColor = color.New(color.FgGreen)
	headerColor  = color.New(color.FgCyan, color.Bold)
	failColor    = color.New(color.FgRed, color.Bold)
)

// app holds the state shared by every command of one invocation
type app struct {
	v     *viper.Viper
	input *ConfigRawInput
	cfg   *Config
	store *store.Store
	out   io.Writer
}

// NewRootCmd returns the command-line entrypoint for all other commands
func NewRootCmd() *cobra.Command {
	a := &app{
		v:     viper.New(),
		input: &ConfigRawInput{},
		cfg:   &Config{},
	}

	rootCmd := &cobra.Command{
		Use:   "demandcast",
		Short: "Forecast industrial demand and production series.",
		Long: `demandcast synthesizes demand and production series, fits a changepoint and
seasonality forecaster, compares trend smoothness values and summarizes production data.`,
		Version:            version,
		SilenceErrors:      true,
		SilenceUsage:       true,
		DisableSuggestions: true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().Uint64("seed", 1405, "Seed of the random source")
	rootCmd.PersistentFlags().String("output-dir", ".", "Directory charts and files are written to")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("db", "", "Optional SQLite file results are archived to")
	rootCmd.PersistentFlags().Bool("html", false, "Also write interactive html forecast pages")
	rootCmd.PersistentFlags().String("log-level", DefaultLogLevel, "Log level: debug or info or warn or error")

	forecastCmd := a.forecastCmd()
	sweepCmd := a.sweepCmd()
	for _, cmd := range []*cobra.Command{forecastCmd, sweepCmd} {
		cmd.Flags().Int("horizon", DefaultHorizon, "Days forecast past the demand history")
		cmd.Flags().Int("demand-days", DefaultDemandDays, "Days of synthetic demand")
		cmd.Flags().String("mode", string(DefaultMode), "Seasonality mode: additive or multiplicative")
		cmd.Flags().Float64("interval-width", DefaultIntervalWidth, "Width of the uncertainty interval")
		cmd.Flags().String("holidays", "", "Holiday calendar added as events: us or es")
	}
	forecastCmd.Flags().Int("production-hours", DefaultProductionHours, "Hours of synthetic production")
	forecastCmd.Flags().Int("production-horizon", DefaultProductionHorizon, "Hours forecast past the production history")
	sweepCmd.Flags().StringSlice("smoothness", DefaultSmoothness, "Changepoint prior scale values to compare")
	sweepCmd.Flags().Int("workers", DefaultWorkers, "Number of concurrent fits")

	aggregateCmd := a.aggregateCmd()
	aggregateCmd.Flags().String("input", DefaultInput, "Production csv with Producto, Cantidad and Defectos columns")
	aggregateCmd.Flags().Bool("parquet", false, "Also write the summary as parquet")
	aggregateCmd.Flags().Int("sample", 0, "Write this many days of simulated records to --input when it does not exist")

	rootCmd.AddCommand(forecastCmd, sweepCmd, aggregateCmd, a.exploreCmd(), versionCmd)
	rootCmd.PersistentPreRunE = a.setup
	rootCmd.PersistentPostRunE = a.teardown
	return rootCmd
}

// initConfig points viper at the config file, the environment and the defaults
func (a *app) initConfig() {
	if configFile := a.v.GetString("config"); configFile != "" {
		a.v.SetConfigFile(configFile)
	} else {
		a.v.SetConfigName(".demandcast")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(".")
		a.v.AddConfigPath("$HOME")
	}

	a.v.SetEnvPrefix("DEMANDCAST")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	a.v.SetDefault("seed", 1405)
	a.v.SetDefault("output-dir", ".")
	a.v.SetDefault("db", "")
	a.v.SetDefault("html", false)
	a.v.SetDefault("log-level", DefaultLogLevel)
	a.v.SetDefault("demand-days", DefaultDemandDays)
	a.v.SetDefault("production-hours", DefaultProductionHours)
	a.v.SetDefault("horizon", DefaultHorizon)
	a.v.SetDefault("production-horizon", DefaultProductionHorizon)
	a.v.SetDefault("mode", string(DefaultMode))
	a.v.SetDefault("interval-width", DefaultIntervalWidth)
	a.v.SetDefault("holidays", "")
	a.v.SetDefault("smoothness", DefaultSmoothness)
	a.v.SetDefault("workers", DefaultWorkers)
	a.v.SetDefault("input", DefaultInput)
	a.v.SetDefault("parquet", false)
	a.v.SetDefault("sample", 0)
}

// setup merges flags, config file, environment and defaults then validates the result
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.out = cmd.OutOrStdout()

	// bind at run time so flags shared by name across commands resolve to the running one
	if err := a.v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return fmt.Errorf("unable to bind inherited flags, %w", err)
	}
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("unable to bind flags, %w", err)
	}
	a.initConfig()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("unable to read config file, %w", err)
		}
	}
	if err := a.v.Unmarshal(a.input); err != nil {
		return fmt.Errorf("unable to unmarshal config, %w", err)
	}
	if err := ProcessAndValidate(a.cfg, a.input); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: a.cfg.LogLevel,
	})))

	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("unable to create output directory %s, %w", a.cfg.OutputDir, err)
	}
	if a.cfg.DBPath != "" {
		s, err := store.Open(a.cfg.DBPath)
		if err != nil {
			return err
		}
		a.store = s
		slog.Debug("archiving results", "db", s.Path())
	}
	return nil
}

func (a *app) teardown(_ *cobra.Command, _ []string) error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// branch is one independent unit of work of a command
type branch struct {
	name string
	run  func(ctx context.Context) error
}

// runBranches runs every branch in order. A failing branch is logged and the others still run.
func (a *app) runBranches(ctx context.Context, branches ...branch) error {
	var failed int
	for _, b := range branches {
		if err := b.run(ctx); err != nil {
			failed++
			slog.Error("branch failed", "branch", b.name, "error", err)
			failColor.Fprintf(a.out, "x %s failed: %v\n", b.name, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d branches failed, %w", failed, len(branches), ErrBranchFailed)
	}
	return nil
}

func (a *app) header(format string, args ...any) {
	headerColor.Fprintf(a.out, "\n"+format+"\n", args...)
}

func (a *app) success(format string, args ...any) {
	successColor.Fprintf(a.out, "✓ "+format+"\n", args...)
}

// Execute runs the root command with ctx
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
