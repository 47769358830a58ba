package cli

import (
	"context"
	"fmt"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/render"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/spf13/cobra"
)

// SweepChart is the file name of the smoothness comparison chart
const SweepChart = "comparacion_cps.png"

func (a *app) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Compare demand forecasts across changepoint prior scales.",
		Long: `Fit the synthetic demand series once per --smoothness value and draw every forecast
over the history in a single chart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBranches(cmd.Context(), branch{name: "sweep", run: a.runSweep})
		},
	}
}

func (a *app) runSweep(ctx context.Context) error {
	rng := timedataset.NewSource(a.cfg.Seed)
	demand, err := timedataset.Generate(timedataset.DemandSpec(Start, a.cfg.DemandDays), rng)
	if err != nil {
		return fmt.Errorf("unable to generate demand, %w", err)
	}

	res, err := forecaster.Sweep(ctx, demand.T, demand.Y, a.cfg.DemandOptions(), a.cfg.Smoothness, a.cfg.Horizon, timedataset.Daily)
	if err != nil {
		return err
	}

	path := a.cfg.OutputPath(SweepChart)
	if err := render.Sweep(path, demand, res); err != nil {
		return err
	}
	a.success("smoothness comparison saved as %s", path)

	if a.store != nil {
		if err := a.store.SaveSweep(ctx, "comparacion_cps", res); err != nil {
			return err
		}
		a.success("sweep archived to %s", a.store.Path())
	}

	a.header("Smoothness comparison")
	for _, run := range res.Runs() {
		if run.Err != nil {
			fmt.Fprintf(a.out, "  CPS = %v: %v\n", run.Smoothness, run.Err)
			continue
		}
		last := run.Results.Len() - 1
		fmt.Fprintf(a.out, "  CPS = %v: %s %.4f\n", run.Smoothness, run.Results.T[last].Format(render.DateFormat), run.Results.Forecast[last])
	}
	return res.Err()
}
