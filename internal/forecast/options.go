// Package forecast fits exponential smoothing models to monthly expense
// series and projects them forward.
package forecast

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/finassist/internal/config"
)

// ErrInvalidOptions is returned for options no model can satisfy.
var ErrInvalidOptions = errors.New("invalid forecast options")

// TrendKind selects how the trend component combines with the level.
type TrendKind int

const (
	TrendAdditive TrendKind = iota
	TrendMultiplicative
)

func (k TrendKind) String() string {
	if k == TrendMultiplicative {
		return "mul"
	}
	return "add"
}

// Options parameterizes one forecast run.
type Options struct {
	Horizon            int
	Seasonal           bool
	SeasonLength       int
	Trend              TrendKind
	Damped             bool
	InflationRate      float64 // compounded per projected month, 0 disables
	IncludeTotal       bool
	MinSeasonalHistory int
	Workers            int
}

// DefaultOptions is the seasonal configuration: multiplicative damped trend,
// multiplicative seasonality with a 12-month cycle, 6 months ahead.
func DefaultOptions() Options {
	return Options{
		Horizon:            6,
		Seasonal:           true,
		SeasonLength:       12,
		Trend:              TrendMultiplicative,
		Damped:             true,
		IncludeTotal:       true,
		MinSeasonalHistory: 24,
	}
}

// EstimateOptions is the quick estimator: additive trend, no seasonality,
// 3 months ahead with 3% monthly inflation applied afterwards.
func EstimateOptions() Options {
	return Options{
		Horizon:       3,
		Trend:         TrendAdditive,
		InflationRate: 0.03,
	}
}

// OptionsFromConfig applies the [forecast] config section to DefaultOptions.
func OptionsFromConfig(cfg config.ForecastConfig) Options {
	opts := DefaultOptions()
	if cfg.Horizon > 0 {
		opts.Horizon = cfg.Horizon
	}
	if cfg.SeasonLength > 0 {
		opts.SeasonLength = cfg.SeasonLength
	}
	if cfg.MinSeasonalHistory > 0 {
		opts.MinSeasonalHistory = cfg.MinSeasonalHistory
	}
	opts.Damped = cfg.Damped
	opts.Workers = cfg.Workers
	return opts
}

func (o Options) validate() error {
	if o.Horizon < 1 {
		return fmt.Errorf("%w: horizon %d", ErrInvalidOptions, o.Horizon)
	}
	if o.Seasonal && o.SeasonLength < 2 {
		return fmt.Errorf("%w: season length %d", ErrInvalidOptions, o.SeasonLength)
	}
	if o.InflationRate <= -1 {
		return fmt.Errorf("%w: inflation rate %v", ErrInvalidOptions, o.InflationRate)
	}
	return nil
}

// Key identifies the options that change fitted output. Worker count is
// excluded since results do not depend on it.
func (o Options) Key() string {
	return fmt.Sprintf("h=%d;seasonal=%t;m=%d;trend=%s;damped=%t;infl=%g;total=%t;min=%d",
		o.Horizon, o.Seasonal, o.SeasonLength, o.Trend, o.Damped, o.InflationRate, o.IncludeTotal, o.MinSeasonalHistory)
}
