package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/model"
)

var errNoValidFit = errors.New("no coefficients keep the model in its valid domain")

// ProgressFunc is called as series finish fitting.
type ProgressFunc func(current, total int)

// Engine fits one model per series and projects them forward.
type Engine struct {
	opts   Options
	logger *zap.Logger
}

// New creates an engine. A nil logger discards output.
func New(opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{opts: opts, logger: logger}
}

// Options returns the engine's configuration.
func (e *Engine) Options() Options { return e.opts }

// Forecast projects every series of h Horizon months past its last period.
func (e *Engine) Forecast(ctx context.Context, h model.History) (*model.Forecast, error) {
	return e.ForecastWithProgress(ctx, h, nil)
}

type seriesResult struct {
	values []float64
	fit    model.FitSummary
	err    error
}

// ForecastWithProgress is Forecast with a progress callback. Series are
// fitted on a bounded worker pool; the output does not depend on the
// worker count.
func (e *Engine) ForecastWithProgress(ctx context.Context, h model.History, progressFn ProgressFunc) (*model.Forecast, error) {
	if err := e.opts.validate(); err != nil {
		return nil, err
	}
	if h.Len() == 0 {
		return nil, fmt.Errorf("%w: empty history", model.ErrInsufficientHistory)
	}

	names := h.Categories
	if e.opts.IncludeTotal {
		names = h.SeriesNames()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no series to forecast", model.ErrMalformedInput)
	}

	numWorkers := e.opts.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(names) {
		numWorkers = len(names)
	}

	work := make(chan int, len(names))
	results := make([]seriesResult, len(names))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range names {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if err := ctx.Err(); err != nil {
					results[idx].err = err
					continue
				}
				y, _ := h.Series(names[idx])
				results[idx] = e.fitSeries(ctx, names[idx], y)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(names))
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("forecast cancelled: %w", err)
	}

	var errs []error
	for i, r := range results {
		if r.err != nil {
			errs = append(errs, model.SeriesErr(names[i], r.err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	periods := MonthEnds(h.Last().Period, e.opts.Horizon)
	f := &model.Forecast{
		Series:  append([]string(nil), names...),
		Records: make([]model.ForecastRecord, len(periods)),
	}
	for k, p := range periods {
		rec := model.ForecastRecord{Period: p, Categories: make(map[string]float64, len(h.Categories))}
		adj := math.Pow(1+e.opts.InflationRate, float64(k))
		for i, name := range names {
			v := results[i].values[k] * adj
			if name == model.TotalSeries {
				rec.Total = v
			} else {
				rec.Categories[name] = v
			}
		}
		f.Records[k] = rec
	}
	for _, r := range results {
		f.Fits = append(f.Fits, r.fit)
	}
	return f, nil
}

// modelFor picks the smoother for a series. The seasonal model needs
// MinSeasonalHistory points (and at least two full cycles) of strictly
// positive data; otherwise a non-seasonal additive trend is used.
func (e *Engine) modelFor(y []float64) (smoother, bool) {
	positive := true
	for _, v := range y {
		if v <= 0 {
			positive = false
			break
		}
	}

	trend := e.opts.Trend
	if trend == TrendMultiplicative && !positive {
		trend = TrendAdditive
	}
	if !e.opts.Seasonal {
		return smoother{trend: trend, damped: e.opts.Damped}, trend != e.opts.Trend
	}

	need := max(e.opts.MinSeasonalHistory, 2*e.opts.SeasonLength)
	if len(y) >= need && positive {
		return smoother{trend: trend, seasonal: true, period: e.opts.SeasonLength, damped: e.opts.Damped}, false
	}
	return smoother{trend: TrendAdditive, damped: e.opts.Damped}, true
}

func (e *Engine) fitSeries(ctx context.Context, name string, y []float64) seriesResult {
	if len(y) < 2 {
		return seriesResult{err: fmt.Errorf("%w: %d points, need at least 2", model.ErrInsufficientHistory, len(y))}
	}

	start := time.Now()
	sm, fallback := e.modelFor(y)
	fit, err := sm.fit(ctx, y, e.opts.Horizon)
	if errors.Is(err, errNoValidFit) && (sm.seasonal || sm.trend == TrendMultiplicative) {
		sm, fallback = smoother{trend: TrendAdditive, damped: e.opts.Damped}, true
		fit, err = sm.fit(ctx, y, e.opts.Horizon)
	}
	if err != nil {
		if errors.Is(err, errNoValidFit) {
			return seriesResult{err: fmt.Errorf("%w: %v", model.ErrModelDiverged, err)}
		}
		return seriesResult{err: err}
	}
	for _, v := range fit.projection {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return seriesResult{err: model.ErrModelDiverged}
		}
	}

	summary := model.FitSummary{
		Series:   name,
		Kind:     sm.kind(),
		Alpha:    fit.params.Alpha,
		Beta:     fit.params.Beta,
		Gamma:    fit.params.Gamma,
		Phi:      fit.params.Phi,
		SSE:      fit.sse,
		Fallback: fallback,
	}
	if fallback {
		e.logger.Info("series fitted without seasonality",
			zap.String("series", name), zap.Int("points", len(y)))
	}
	e.logger.Debug("series fitted",
		zap.String("series", name),
		zap.String("model", sm.kind()),
		zap.String("trend", sm.trend.String()),
		zap.Float64("alpha", fit.params.Alpha),
		zap.Float64("beta", fit.params.Beta),
		zap.Float64("gamma", fit.params.Gamma),
		zap.Float64("phi", fit.params.Phi),
		zap.Float64("sse", fit.sse),
		zap.Duration("elapsed", time.Since(start)))

	return seriesResult{values: fit.projection, fit: summary}
}

// MonthEnds returns the last day of each of the n months following the
// month containing last.
func MonthEnds(last time.Time, n int) []time.Time {
	first := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for k := 1; k <= n; k++ {
		out[k-1] = first.AddDate(0, k+1, -1)
	}
	return out
}
