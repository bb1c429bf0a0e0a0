// Package synth produces synthetic monthly wage and expense histories.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/source"
)

// ErrInvalidParams is returned when generator parameters cannot produce a history.
var ErrInvalidParams = errors.New("invalid generator parameters")

// perturbation is the half-width of the uniform noise band applied to the
// monthly total and to each category share.
const perturbation = 0.05

// Params controls one generated history.
type Params struct {
	Start           time.Time
	Months          int
	InflationRate   float64 // per month
	RaiseRate       float64 // applied at the start of every 12-month cycle
	StartingExpense float64
	StartingWage    float64
	Categories      []config.Category
}

// ParamsFromConfig builds generator parameters from the config section.
func ParamsFromConfig(cfg config.GeneratorConfig) (Params, error) {
	start, err := source.ParsePeriod(cfg.Start)
	if err != nil {
		return Params{}, fmt.Errorf("%w: start: %v", ErrInvalidParams, err)
	}
	return Params{
		Start:           start,
		Months:          cfg.Months,
		InflationRate:   cfg.InflationRate,
		RaiseRate:       cfg.RaiseRate,
		StartingExpense: cfg.StartingExpense,
		StartingWage:    cfg.StartingWage,
		Categories:      config.GeneratorCategories(cfg),
	}, nil
}

func (p Params) validate() error {
	var problems []string
	if p.Months < 1 {
		problems = append(problems, "months must be positive")
	}
	if p.StartingExpense <= 0 {
		problems = append(problems, "starting expense must be positive")
	}
	if p.StartingWage <= 0 {
		problems = append(problems, "starting wage must be positive")
	}
	if len(p.Categories) == 0 {
		problems = append(problems, "no categories")
	}
	for _, c := range p.Categories {
		if c.Share < 0 {
			problems = append(problems, fmt.Sprintf("negative share for %q", c.Name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidParams, strings.Join(problems, "; "))
	}
	return nil
}

// NewRand returns a random source. A zero seed draws one from the clock.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func uniform(rng *rand.Rand, halfWidth float64) float64 {
	return -halfWidth + 2*halfWidth*rng.Float64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Generate produces one record per month starting at p.Start.
func Generate(p Params, rng *rand.Rand) (model.History, error) {
	if err := p.validate(); err != nil {
		return model.History{}, err
	}

	names := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		names[i] = c.Name
	}
	h := model.History{
		Categories: names,
		Records:    make([]model.ExpenseRecord, 0, p.Months),
	}

	start := time.Date(p.Start.Year(), p.Start.Month(), 1, 0, 0, 0, 0, time.UTC)
	expense := p.StartingExpense
	wage := p.StartingWage

	for i := 0; i < p.Months; i++ {
		if i > 0 && i%12 == 0 {
			wage *= 1 + p.RaiseRate
		}
		expense *= 1 + p.InflationRate + uniform(rng, perturbation)

		cats := make(map[string]float64, len(p.Categories))
		for _, c := range p.Categories {
			cats[c.Name] = round2(expense * c.Share * (1 + uniform(rng, perturbation)))
		}

		h.Records = append(h.Records, model.ExpenseRecord{
			Period:     start.AddDate(0, i, 0),
			Wage:       round2(wage),
			Total:      round2(expense),
			Categories: cats,
		})
	}
	return h, nil
}
