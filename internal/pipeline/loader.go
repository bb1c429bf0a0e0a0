package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/source"
)

// Result holds the output of the full load, forecast and metrics pipeline.
type Result struct {
	Path        string
	History     model.History
	Forecast    *model.Forecast
	Metrics     model.MetricsResult
	Fingerprint string
	CacheHit    bool
	CacheErr    error // a failed cache read or write; the result is still valid
	Elapsed     time.Duration
}

// ProgressFunc is called as series finish fitting.
type ProgressFunc = forecast.ProgressFunc

// Run loads the history at path, forecasts it and derives metrics.
func Run(ctx context.Context, path string, engine *forecast.Engine, progressFn ProgressFunc) (*Result, error) {
	h, err := source.LoadHistory(path)
	if err != nil {
		return nil, err
	}
	res, err := RunHistory(ctx, h, engine, progressFn)
	if err != nil {
		return nil, err
	}
	res.Path = path
	return res, nil
}

// RunHistory forecasts an already loaded history.
func RunHistory(ctx context.Context, h model.History, engine *forecast.Engine, progressFn ProgressFunc) (*Result, error) {
	start := time.Now()
	f, err := engine.ForecastWithProgress(ctx, h, progressFn)
	if err != nil {
		return nil, fmt.Errorf("forecasting: %w", err)
	}
	return &Result{
		History:     h,
		Forecast:    f,
		Metrics:     forecast.ComputeMetrics(h, *f),
		Fingerprint: Fingerprint(HistoryFingerprint(h), engine.Options()),
		Elapsed:     time.Since(start),
	}, nil
}
