package forecast

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/finassist/internal/model"
)

// trendWindow is how many trailing periods RecentTrend compares across.
const trendWindow = 6

// AvgMonthlyIncrease is the change from the last actual value to the last
// projected value, spread over the horizon.
func AvgMonthlyIncrease(lastActual, lastForecast float64, horizon int) (float64, error) {
	if horizon < 1 {
		return 0, fmt.Errorf("%w: horizon %d", model.ErrDivisionByZero, horizon)
	}
	return (lastForecast - lastActual) / float64(horizon), nil
}

// TotalIncreasePercentage is the relative change from the last actual value
// to the last projected value. A zero baseline is an error.
func TotalIncreasePercentage(lastActual, lastForecast float64) (float64, error) {
	if lastActual == 0 {
		return 0, fmt.Errorf("%w: last actual value is 0", model.ErrDivisionByZero)
	}
	return (lastForecast - lastActual) / lastActual * 100, nil
}

// RecentTrend is the percent change across the trailing six periods: from
// the sixth-to-last value to the last one.
func RecentTrend(actual []float64) (float64, error) {
	n := len(actual)
	if n < trendWindow {
		return 0, fmt.Errorf("%w: %d periods, need %d", model.ErrInsufficientHistory, n, trendWindow)
	}
	base := actual[n-trendWindow]
	if base == 0 {
		return 0, fmt.Errorf("%w: value %d periods ago is 0", model.ErrDivisionByZero, trendWindow)
	}
	return (actual[n-1] - base) / base * 100, nil
}

// ComputeMetrics derives the per-series metrics for a forecast. It has no
// side effects; a metric that cannot be computed is reported in the
// series' Err and left at zero.
func ComputeMetrics(h model.History, f model.Forecast) model.MetricsResult {
	res := model.MetricsResult{Horizon: f.Horizon()}
	for _, name := range f.Series {
		m := model.SeriesMetrics{Series: name}
		actual, ok := h.Series(name)
		if !ok || len(actual) == 0 || f.Horizon() == 0 {
			m.Err = model.SeriesErr(name, fmt.Errorf("%w: no values", model.ErrInsufficientHistory))
			res.Series = append(res.Series, m)
			continue
		}

		lastA := actual[len(actual)-1]
		lastF := f.Records[f.Horizon()-1].Value(name)

		var errs []error
		var err error
		if m.AvgMonthlyIncrease, err = AvgMonthlyIncrease(lastA, lastF, f.Horizon()); err != nil {
			errs = append(errs, err)
		}
		if m.TotalIncreasePct, err = TotalIncreasePercentage(lastA, lastF); err != nil {
			errs = append(errs, err)
		}
		if m.RecentTrend, err = RecentTrend(actual); err != nil {
			errs = append(errs, err)
		}
		m.Err = model.SeriesErr(name, errors.Join(errs...))
		res.Series = append(res.Series, m)
	}
	return res
}
