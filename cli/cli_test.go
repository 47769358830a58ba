package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/production"
	"github.com/aouyang1/go-demandcast/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Seed:              1405,
		OutputDir:         ".",
		LogLevel:          "info",
		DemandDays:        DefaultDemandDays,
		ProductionHours:   DefaultProductionHours,
		Horizon:           DefaultHorizon,
		ProductionHorizon: DefaultProductionHorizon,
		Mode:              string(DefaultMode),
		IntervalWidth:     DefaultIntervalWidth,
		Smoothness:        DefaultSmoothness,
		Workers:           DefaultWorkers,
		Input:             DefaultInput,
	}
}

func TestProcessAndValidate(t *testing.T) {
	testData := map[string]struct {
		update func(in *ConfigRawInput)
		err    error
		param  string
	}{
		"defaults": {
			update: func(*ConfigRawInput) {},
		},
		"log level": {
			update: func(in *ConfigRawInput) { in.LogLevel = "loud" },
			err:    ErrInvalidFlag,
			param:  "log-level",
		},
		"short demand": {
			update: func(in *ConfigRawInput) { in.DemandDays = 1 },
			err:    ErrInvalidFlag,
			param:  "demand-days",
		},
		"negative horizon": {
			update: func(in *ConfigRawInput) { in.Horizon = -1 },
			err:    ErrInvalidFlag,
			param:  "horizon",
		},
		"mode": {
			update: func(in *ConfigRawInput) { in.Mode = "geometric" },
			err:    forecaster.ErrInvalidConfig,
			param:  "mode",
		},
		"interval width": {
			update: func(in *ConfigRawInput) { in.IntervalWidth = 1.5 },
			err:    forecaster.ErrInvalidConfig,
			param:  "interval_width",
		},
		"holidays": {
			update: func(in *ConfigRawInput) { in.Holidays = "atlantis" },
			err:    forecaster.ErrInvalidConfig,
			param:  "holidays",
		},
		"smoothness text": {
			update: func(in *ConfigRawInput) { in.Smoothness = []string{"0.1", "soft"} },
			err:    ErrInvalidFlag,
			param:  "smoothness",
		},
		"no smoothness": {
			update: func(in *ConfigRawInput) { in.Smoothness = nil },
			err:    ErrInvalidFlag,
			param:  "smoothness",
		},
		"workers": {
			update: func(in *ConfigRawInput) { in.Workers = 0 },
			err:    ErrInvalidFlag,
			param:  "workers",
		},
		"sample": {
			update: func(in *ConfigRawInput) { in.Sample = -3 },
			err:    ErrInvalidFlag,
			param:  "sample",
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			td.update(in)
			cfg := &Config{}
			err := ProcessAndValidate(cfg, in)
			if td.err == nil {
				require.NoError(t, err)
				assert.Equal(t, []float64{0.001, 0.01, 0.1, 0.5}, cfg.Smoothness)
				assert.Equal(t, forecaster.ModeAdditive, cfg.Mode)
				return
			}
			require.ErrorIs(t, err, td.err)
			assert.Contains(t, err.Error(), td.param)
		})
	}
}

func TestTargetOptions(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))

	testData := map[string]struct {
		opt    *forecaster.Options
		yearly bool
		weekly bool
		daily  bool
	}{
		"demand":     {opt: cfg.DemandOptions(), weekly: true},
		"production": {opt: cfg.ProductionOptions(), weekly: true, daily: true},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, td.opt.Validate())
			assert.Equal(t, td.yearly, td.opt.Yearly)
			assert.Equal(t, td.weekly, td.opt.Weekly)
			assert.Equal(t, td.daily, td.opt.Daily)
			assert.Equal(t, cfg.Mode, td.opt.Mode)
			assert.Equal(t, cfg.IntervalWidth, td.opt.IntervalWidth)
		})
	}
}

func TestParseSmoothness(t *testing.T) {
	testData := map[string]struct {
		raw      []string
		expected []float64
	}{
		"list":           {raw: []string{"0.1", "0.5"}, expected: []float64{0.1, 0.5}},
		"comma joined":   {raw: []string{"0.1,0.5"}, expected: []float64{0.1, 0.5}},
		"bracketed":      {raw: []string{"[0.1, 0.5]"}, expected: []float64{0.1, 0.5}},
		"blank trimmed":  {raw: []string{" 0.2 ", ""}, expected: []float64{0.2}},
		"keeps repeated": {raw: []string{"0.1", "0.1"}, expected: []float64{0.1, 0.1}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res, err := parseSmoothness(td.raw)
			require.NoError(t, err)
			assert.Equal(t, td.expected, res)
		})
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func assertFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}
}

func TestForecastCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "demandcast.db")
	out, err := execute(t, "forecast",
		"--output-dir", dir,
		"--demand-days", "60",
		"--production-hours", "96",
		"--horizon", "5",
		"--production-horizon", "12",
		"--db", dbPath,
		"--html",
	)
	require.NoError(t, err)
	assertFiles(t, dir,
		"prediccion_demanda.png",
		"componentes_demanda.png",
		"prediccion_produccion.png",
		"componentes_produccion.png",
		"demanda.html",
		"produccion.html",
	)
	assert.Contains(t, out, "last 5 predictions")

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	res, err := s.LoadForecast(context.Background(), "demanda")
	require.NoError(t, err)
	assert.Equal(t, 65, res.Len())
	res, err = s.LoadForecast(context.Background(), "produccion")
	require.NoError(t, err)
	assert.Equal(t, 108, res.Len())
}

func TestForecastCommandDeterministic(t *testing.T) {
	run := func() string {
		dir := t.TempDir()
		out, err := execute(t, "forecast", "--output-dir", dir, "--demand-days", "40", "--production-hours", "72")
		require.NoError(t, err)
		// drop the lines naming the temporary directory
		var kept []string
		for _, line := range strings.Split(out, "\n") {
			if !strings.Contains(line, dir) {
				kept = append(kept, line)
			}
		}
		return strings.Join(kept, "\n")
	}
	assert.Equal(t, run(), run())
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "demandcast.db")
	out, err := execute(t, "sweep",
		"--output-dir", dir,
		"--demand-days", "60",
		"--smoothness", "0.01,0.5",
		"--workers", "2",
		"--db", dbPath,
	)
	require.NoError(t, err)
	assertFiles(t, dir, SweepChart)
	assert.Contains(t, out, "CPS = 0.01")
	assert.Contains(t, out, "CPS = 0.5")

	s, err := store.Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	records, err := s.LoadSweep(context.Background(), "comparacion_cps")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 0.01, records[0].Smoothness)
	assert.Len(t, records[0].Forecast, 90)

	_, err = execute(t, "sweep", "--output-dir", dir, "--smoothness", "0.1,0.1")
	assert.ErrorIs(t, err, ErrBranchFailed)
}

func TestAggregateCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "datos_produccion.csv")
	data := "Fecha,Producto,Cantidad,Defectos\n" +
		"2024-01-01,A,10,1\n" +
		"2024-01-01,B,5,0\n" +
		"2024-01-02,A,20,3\n"
	require.NoError(t, os.WriteFile(input, []byte(data), 0o644))

	_, err := execute(t, "aggregate", "--output-dir", dir, "--input", input, "--parquet")
	require.NoError(t, err)
	assertFiles(t, dir, SummaryCSV, SummaryCSVNoIndex, SummaryParquet)

	summary, err := os.ReadFile(filepath.Join(dir, SummaryCSV))
	require.NoError(t, err)
	assert.Equal(t, "Producto,Total_Producido,Total_Defectos\nA,30,2.0\nB,5,0.0\n", string(summary))

	summary, err = os.ReadFile(filepath.Join(dir, SummaryCSVNoIndex))
	require.NoError(t, err)
	assert.Equal(t, "Total_Producido,Total_Defectos\n30,2.0\n5,0.0\n", string(summary))

	groups, err := production.ReadParquet(filepath.Join(dir, SummaryParquet))
	require.NoError(t, err)
	assert.Equal(t, production.Aggregate([]production.Record{
		{Product: "A", Quantity: 10, Defects: 1},
		{Product: "A", Quantity: 20, Defects: 3},
		{Product: "B", Quantity: 5, Defects: 0},
	}), groups)
}

func TestAggregateCommandInput(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "aggregate", "--output-dir", dir, "--input", filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrBranchFailed)
	_, statErr := os.Stat(filepath.Join(dir, SummaryCSV))
	assert.True(t, os.IsNotExist(statErr))

	// a sample is simulated when the input is missing
	input := filepath.Join(dir, "sample.csv")
	_, err = execute(t, "aggregate", "--output-dir", dir, "--input", input, "--sample", "10")
	require.NoError(t, err)
	records, err := production.LoadCSV(input)
	require.NoError(t, err)
	assert.Len(t, records, 10*len(SampleProducts))
	assertFiles(t, dir, SummaryCSV, SummaryCSVNoIndex)
}

func TestExploreCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "explore", "--output-dir", dir)
	require.NoError(t, err)
	assertFiles(t, dir, DailyProductionChart, SupplierCostChart, CycleTimeChart)
	assert.Contains(t, out, "2024-01-31")
	assert.Contains(t, out, "largest day to day change")
}

func TestConfigSources(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "demandcast.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log-level: loud\n"), 0o644))
	_, err := execute(t, "explore", "--output-dir", dir, "--config", configPath)
	require.ErrorIs(t, err, ErrInvalidFlag)
	assert.Contains(t, err.Error(), "log-level")

	t.Setenv("DEMANDCAST_WORKERS", "0")
	_, err = execute(t, "sweep", "--output-dir", dir)
	require.ErrorIs(t, err, ErrInvalidFlag)
	assert.Contains(t, err.Error(), "workers")

	// flags win over the environment
	_, err = execute(t, "sweep", "--output-dir", dir, "--demand-days", "40", "--smoothness", "0.1", "--workers", "1")
	assert.NoError(t, err)
}
