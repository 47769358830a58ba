package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aouyang1/go-demandcast/production"
	"github.com/aouyang1/go-demandcast/render"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/spf13/cobra"
)

// Output file names of the aggregate command
const (
	SummaryCSV        = "resumen_produccion.csv"
	SummaryCSVNoIndex = "resumen_produccion_sin_indice.csv"
	SummaryParquet    = "resumen_produccion.parquet"
)

// SampleProducts are the products of simulated production records
var SampleProducts = []string{"A", "B", "C"}

func (a *app) aggregateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregate",
		Short: "Summarize production records per product.",
		Long: `Read the production csv, total the produced quantity and average the defects per
product and write the summary with and without the product index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBranches(cmd.Context(), branch{name: "aggregate", run: a.runAggregate})
		},
	}
}

func (a *app) runAggregate(_ context.Context) error {
	if a.cfg.Sample > 0 {
		if err := a.writeSample(); err != nil {
			return err
		}
	}

	records, err := production.LoadCSV(a.cfg.Input)
	if err != nil {
		return err
	}
	groups := production.Aggregate(records)

	a.header("Production per product (%d records)", len(records))
	if err := render.GroupTable(a.out, groups); err != nil {
		return err
	}

	path := a.cfg.OutputPath(SummaryCSV)
	if err := production.WriteCSVFile(path, groups, true); err != nil {
		return err
	}
	a.success("summary saved as %s", path)

	path = a.cfg.OutputPath(SummaryCSVNoIndex)
	if err := production.WriteCSVFile(path, groups, false); err != nil {
		return err
	}
	a.success("summary without index saved as %s", path)

	if a.cfg.Parquet {
		path = a.cfg.OutputPath(SummaryParquet)
		if err := production.WriteParquet(path, groups); err != nil {
			return err
		}
		a.success("summary saved as %s", path)
	}
	return nil
}

// writeSample simulates records into the input path unless it already exists
func (a *app) writeSample() error {
	_, err := os.Stat(a.cfg.Input)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("unable to stat %s, %w", a.cfg.Input, err)
	}

	records := production.Simulate(timedataset.NewSource(a.cfg.Seed), Start, a.cfg.Sample, SampleProducts)
	file, err := os.Create(a.cfg.Input)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", a.cfg.Input, err)
	}
	if err := production.WriteRecordsCSV(file, records); err != nil {
		_ = file.Close()
		return fmt.Errorf("unable to write %s, %w", a.cfg.Input, err)
	}
	if err := file.Close(); err != nil {
		return err
	}
	a.success("simulated %d records saved as %s", len(records), a.cfg.Input)
	return nil
}
