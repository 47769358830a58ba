package cli

import (
	"context"
	"fmt"
	"image/color"
	"math"

	"github.com/aouyang1/go-demandcast/render"
	"github.com/aouyang1/go-demandcast/stats"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/spf13/cobra"
)

// Output file names of the explore command
const (
	DailyProductionChart = "produccion_diaria.png"
	SupplierCostChart    = "costo_promedio_proveedor.png"
	CycleTimeChart       = "distribucion_tiempos_ciclo.png"
)

var (
	suppliers    = []string{"A", "B", "C", "D"}
	supplierCost = []float64{10.5, 9.8, 11.2, 10.1}

	green  = color.RGBA{R: 0x00, G: 0x80, B: 0x00, A: 0xff}
	sky    = color.RGBA{R: 0x87, G: 0xce, B: 0xeb, A: 0xff}
	purple = color.RGBA{R: 0x80, G: 0x00, B: 0x80, A: 0xb3}
)

// exploreData is every series drawn by the explore command. The draws happen up front so the
// output does not depend on which branches fail.
type exploreData struct {
	production *timedataset.TimeDataset
	cycleTimes []float64
	demand     *timedataset.TimeDataset
}

func (a *app) exploreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Describe and chart simple industrial datasets.",
		Long: `Chart 30 days of production, the average cost per supplier and the distribution of
cycle times, then resample and smooth a simulated demand series.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := a.exploreData()
			return a.runBranches(cmd.Context(),
				branch{name: "produccion_diaria", run: func(context.Context) error { return a.exploreProduction(data) }},
				branch{name: "costo_proveedor", run: func(context.Context) error { return a.exploreCosts() }},
				branch{name: "tiempos_ciclo", run: func(context.Context) error { return a.exploreCycleTimes(data) }},
				branch{name: "series_temporales", run: func(context.Context) error { return a.exploreTimeOps(data) }},
			)
		},
	}
}

func (a *app) exploreData() exploreData {
	rng := timedataset.NewSource(a.cfg.Seed)
	days := timedataset.GenerateRange(Start, 30, timedataset.Daily)
	return exploreData{
		production: &timedataset.TimeDataset{T: days, Y: timedataset.GenerateUniformInt(rng, len(days), 80, 150)},
		cycleTimes: timedataset.GenerateNormal(rng, 100, 5, 1),
		demand:     &timedataset.TimeDataset{T: days, Y: timedataset.GenerateUniformInt(rng, len(days), 50, 200)},
	}
}

func (a *app) describe(name string, y []float64) error {
	summary, err := stats.Describe(y)
	if err != nil {
		return err
	}
	a.header("Summary of %s", name)
	return render.DescribeTable(a.out, name, summary)
}

func (a *app) exploreProduction(data exploreData) error {
	if err := a.describe("Produccion", data.production.Y); err != nil {
		return err
	}
	path := a.cfg.OutputPath(DailyProductionChart)
	err := render.Line(path, render.LineChart{
		Title:   "Producción Diaria - Enero 2024",
		XLabel:  "Fecha",
		YLabel:  "Unidades Producidas",
		T:       data.production.T,
		Y:       data.production.Y,
		Markers: true,
		Color:   green,
	})
	if err != nil {
		return err
	}
	a.success("production chart saved as %s", path)
	return nil
}

func (a *app) exploreCosts() error {
	path := a.cfg.OutputPath(SupplierCostChart)
	err := render.Bar(path, render.BarChart{
		Title:     "Comparación de Costos por Proveedor",
		XLabel:    "Proveedor",
		YLabel:    "Costo Promedio (USD)",
		Labels:    suppliers,
		Values:    supplierCost,
		Color:     sky,
		Precision: 1,
	})
	if err != nil {
		return err
	}
	a.success("supplier cost chart saved as %s", path)
	return nil
}

func (a *app) exploreCycleTimes(data exploreData) error {
	if err := a.describe("Tiempo", data.cycleTimes); err != nil {
		return err
	}
	path := a.cfg.OutputPath(CycleTimeChart)
	err := render.Histogram(path, render.HistogramChart{
		Title:    "Distribución de Tiempos de Ciclo",
		XLabel:   "Tiempo (minutos)",
		YLabel:   "Frecuencia",
		Values:   data.cycleTimes,
		Bins:     15,
		ShowMean: true,
		Color:    purple,
	})
	if err != nil {
		return err
	}
	a.success("cycle time chart saved as %s", path)
	return nil
}

func (a *app) exploreTimeOps(data exploreData) error {
	demand := data.demand

	a.header("Demand, first days")
	if err := render.SeriesTable(a.out, "demanda", demand, DefaultTailRows); err != nil {
		return err
	}

	window, err := demand.Slice(Start.AddDate(0, 0, 2), Start.AddDate(0, 0, 6))
	if err != nil {
		return err
	}
	a.header("Demand from %s to %s", window.T[0].Format(render.DateFormat), window.T[window.Len()-1].Format(render.DateFormat))
	if err := render.SeriesTable(a.out, "demanda", window, 0); err != nil {
		return err
	}

	a.header("Demand lagged one day")
	if err := render.SeriesTable(a.out, "demanda_previa", demand.Shift(1), DefaultTailRows); err != nil {
		return err
	}

	rolling, err := demand.RollingMean(7)
	if err != nil {
		return err
	}
	a.header("7 day rolling mean")
	if err := render.SeriesTable(a.out, "media_movil", tailOf(rolling, DefaultTailRows), 0); err != nil {
		return err
	}

	weekly, err := demand.Resample(timedataset.Weekly, timedataset.Sum)
	if err != nil {
		return err
	}
	a.header("Weekly total")
	if err := render.SeriesTable(a.out, "total_semanal", weekly, 0); err != nil {
		return err
	}

	monthly, err := demand.Resample(timedataset.MonthEnd, timedataset.Sum)
	if err != nil {
		return err
	}
	a.header("Monthly total")
	if err := render.SeriesTable(a.out, "total_mensual", monthly, 0); err != nil {
		return err
	}

	diff := demand.Diff()
	var maxJump float64
	for _, v := range diff.Y {
		if !math.IsNaN(v) {
			maxJump = math.Max(maxJump, math.Abs(v))
		}
	}
	fmt.Fprintf(a.out, "largest day to day change: %.0f\n", maxJump)
	return nil
}

// tailOf returns the last n points of td
func tailOf(td *timedataset.TimeDataset, n int) *timedataset.TimeDataset {
	if td.Len() <= n {
		return td
	}
	return &timedataset.TimeDataset{T: td.T[td.Len()-n:], Y: td.Y[td.Len()-n:]}
}
