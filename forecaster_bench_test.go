package forecaster

import (
	"testing"

	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/goccy/go-json"
	"github.com/pkg/profile"
)

var benchPredictRes *Results

func benchSeries(b *testing.B) *timedataset.TimeDataset {
	td, err := timedataset.Generate(
		timedataset.ProductionSpec(testStart, 24*90),
		timedataset.NewSource(timedataset.DefaultSeed),
	)
	if err != nil {
		panic(err)
	}
	return td
}

func BenchmarkTrainToModel(b *testing.B) {
	td := benchSeries(b)
	opt := NewDefaultOptions()
	opt.Holidays = "us"

	var f *Forecaster
	var err error

	b.ResetTimer()
	for b.Loop() {
		f, err = New(opt)
		if err != nil {
			panic(err)
		}

		if err := f.Fit(td.T, td.Y); err != nil {
			panic(err)
		}
	}

	m, err := f.Model()
	if err != nil {
		panic(err)
	}
	if _, err := json.MarshalIndent(m, "", "  "); err != nil {
		panic(err)
	}
}

func BenchmarkPredictFromModel(b *testing.B) {
	td := benchSeries(b)
	f, err := New(nil)
	if err != nil {
		panic(err)
	}
	if err := f.Fit(td.T, td.Y); err != nil {
		panic(err)
	}
	m, err := f.Model()
	if err != nil {
		panic(err)
	}

	bytes, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	var model Model
	if err := json.Unmarshal(bytes, &model); err != nil {
		panic(err)
	}
	loaded, err := NewFromModel(model)
	if err != nil {
		panic(err)
	}

	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(b.TempDir()), profile.Quiet).Stop()
	for b.Loop() {
		benchPredictRes, err = loaded.Predict(48, timedataset.Hourly)
		if err != nil {
			panic(err)
		}
	}
}
