package forecaster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-demandcast/timedataset"
	"golang.org/x/sync/errgroup"
)

// SweepRun is the outcome of fitting and predicting with a single smoothness value
type SweepRun struct {
	Smoothness float64
	Results    *Results
	Err        error
}

// SweepResult holds one run per smoothness value in the order they were requested
type SweepResult struct {
	runs []SweepRun
}

// Len returns the number of runs in the sweep
func (s *SweepResult) Len() int {
	if s == nil {
		return 0
	}
	return len(s.runs)
}

// Keys returns the smoothness values in sweep order
func (s *SweepResult) Keys() []float64 {
	keys := make([]float64, 0, s.Len())
	for _, run := range s.runs {
		keys = append(keys, run.Smoothness)
	}
	return keys
}

// Get returns the results of a smoothness value. Missing values and failed runs report false.
func (s *SweepResult) Get(smoothness float64) (*Results, bool) {
	for _, run := range s.runs {
		if run.Smoothness == smoothness {
			return run.Results, run.Err == nil && run.Results != nil
		}
	}
	return nil, false
}

// Runs returns a copy of every run in sweep order
func (s *SweepResult) Runs() []SweepRun {
	res := make([]SweepRun, s.Len())
	copy(res, s.runs)
	return res
}

// Err joins the errors of every failed run or returns nil when all succeeded
func (s *SweepResult) Err() error {
	errs := make([]error, 0, s.Len())
	for _, run := range s.runs {
		if run.Err != nil {
			errs = append(errs, run.Err)
		}
	}
	return errors.Join(errs...)
}

// Sweep fits an independent forecaster per smoothness value using a copy of the base options and
// predicts horizon steps ahead. Members run concurrently bounded by the base Parallelization and
// a failing member never stops the others. Duplicate or invalid values are rejected before any
// fit. Cancelling the context stops scheduling members that have not started.
func Sweep(
	ctx context.Context,
	t []time.Time,
	y []float64,
	base *Options,
	values []float64,
	horizon int,
	freq timedataset.Frequency,
) (*SweepResult, error) {
	if base == nil {
		base = NewDefaultOptions()
	}
	if len(values) == 0 {
		return nil, invalid("smoothness", "sweep requires at least one value")
	}

	memberOpts := make([]*Options, 0, len(values))
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		if _, exists := seen[v]; exists {
			return nil, fmt.Errorf("smoothness %v, %w", v, ErrDuplicateSmoothness)
		}
		seen[v] = struct{}{}

		opt := base.Copy()
		opt.Smoothness = v
		if err := opt.Validate(); err != nil {
			return nil, err
		}
		memberOpts = append(memberOpts, opt)
	}

	limit := base.Parallelization
	if limit <= 0 {
		limit = DefaultParallelization
	}

	runs := make([]SweepRun, len(values))
	var g errgroup.Group
	g.SetLimit(limit)
	for i, opt := range memberOpts {
		runs[i].Smoothness = opt.Smoothness
		if err := ctx.Err(); err != nil {
			runs[i].Err = fmt.Errorf("smoothness %v not run, %w", opt.Smoothness, err)
			continue
		}
		g.Go(func() error {
			res, err := runSweepMember(t, y, opt, horizon, freq)
			if err != nil {
				slog.Warn("sweep member failed", "smoothness", opt.Smoothness, "error", err)
				runs[i].Err = fmt.Errorf("smoothness %v, %w", opt.Smoothness, err)
				return nil
			}
			runs[i].Results = res
			return nil
		})
	}
	// members never return errors so Wait only joins them
	_ = g.Wait()

	return &SweepResult{runs: runs}, nil
}

func runSweepMember(t []time.Time, y []float64, opt *Options, horizon int, freq timedataset.Frequency) (*Results, error) {
	f, err := New(opt)
	if err != nil {
		return nil, err
	}
	if err := f.Fit(t, y); err != nil {
		return nil, err
	}
	return f.Predict(horizon, freq)
}
