package cli

import (
	"context"
	"fmt"
	"os"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/render"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/spf13/cobra"
)

// forecastTarget describes one series forecast by the forecast command
type forecastTarget struct {
	name     string
	title    string
	yLabel   string
	td       *timedataset.TimeDataset
	horizon  int
	freq     timedataset.Frequency
	opt      *forecaster.Options
	forecast string
	comps    string
}

func (a *app) forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the synthetic demand and production series.",
		Long: `Generate the daily demand and hourly production series, fit a forecaster to each and
write the forecast and component charts along with the last predicted rows.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runForecast(cmd.Context())
		},
	}
}

func (a *app) runForecast(ctx context.Context) error {
	rng := timedataset.NewSource(a.cfg.Seed)
	demand, err := timedataset.Generate(timedataset.DemandSpec(Start, a.cfg.DemandDays), rng)
	if err != nil {
		return fmt.Errorf("unable to generate demand, %w", err)
	}
	production, err := timedataset.Generate(timedataset.ProductionSpec(Start, a.cfg.ProductionHours), rng)
	if err != nil {
		return fmt.Errorf("unable to generate production, %w", err)
	}

	targets := []forecastTarget{
		{
			name:     "demanda",
			title:    "Predicción de Demanda",
			yLabel:   "Demanda",
			td:       demand,
			horizon:  a.cfg.Horizon,
			freq:     timedataset.Daily,
			opt:      a.cfg.DemandOptions(),
			forecast: "prediccion_demanda.png",
			comps:    "componentes_demanda.png",
		},
		{
			name:     "produccion",
			title:    "Predicción de Producción por Hora",
			yLabel:   "Unidades",
			td:       production,
			horizon:  a.cfg.ProductionHorizon,
			freq:     timedataset.Hourly,
			opt:      a.cfg.ProductionOptions(),
			forecast: "prediccion_produccion.png",
			comps:    "componentes_produccion.png",
		},
	}

	branches := make([]branch, 0, len(targets))
	for _, target := range targets {
		branches = append(branches, branch{
			name: target.name,
			run: func(ctx context.Context) error {
				return a.forecastTarget(ctx, target)
			},
		})
	}
	return a.runBranches(ctx, branches...)
}

func (a *app) forecastTarget(ctx context.Context, target forecastTarget) error {
	f, err := forecaster.New(target.opt)
	if err != nil {
		return err
	}
	if err := f.Fit(target.td.T, target.td.Y); err != nil {
		return fmt.Errorf("unable to fit %s, %w", target.name, err)
	}
	res, err := f.Predict(target.horizon, target.freq)
	if err != nil {
		return fmt.Errorf("unable to predict %s, %w", target.name, err)
	}
	scores := f.Scores()

	path := a.cfg.OutputPath(target.forecast)
	if err := render.Forecast(path, target.title, "Fecha", target.yLabel, target.td, res); err != nil {
		return err
	}
	a.success("forecast chart saved as %s", path)

	comps := res.Components()
	path = a.cfg.OutputPath(target.comps)
	if err := render.Components(path, res, comps); err != nil {
		return err
	}
	a.success("component chart saved as %s", path)

	if a.cfg.HTML {
		path = a.cfg.OutputPath(target.name + ".html")
		if err := writeHTML(path, target.td, res, comps); err != nil {
			return err
		}
		a.success("interactive page saved as %s", path)
	}

	if a.store != nil {
		if err := a.store.SaveForecast(ctx, target.name, res); err != nil {
			return err
		}
		m, err := f.Model()
		if err != nil {
			return err
		}
		if err := a.store.SaveModel(ctx, target.name, m); err != nil {
			return err
		}
		a.success("forecast %s archived to %s", target.name, a.store.Path())
	}

	a.header("%s: last %d predictions (MAPE %.4f, R2 %.4f)", target.title, DefaultTailRows, scores.MAPE, scores.R2)
	return render.SummaryTable(a.out, res, DefaultTailRows)
}

func writeHTML(path string, history *timedataset.TimeDataset, res *forecaster.Results, comps map[string][]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := render.ForecastHTML(file, history, res, comps); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
