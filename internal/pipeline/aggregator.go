// Package pipeline orchestrates history loading, forecasting, caching and
// aggregation.
package pipeline

import (
	"sort"
	"time"

	"github.com/theirongolddev/finassist/internal/model"
)

// FilterByTime returns the records with since <= period < until. A zero
// bound is open.
func FilterByTime(h model.History, since, until time.Time) model.History {
	out := model.History{Categories: h.Categories}
	for _, r := range h.Records {
		if !since.IsZero() && r.Period.Before(since) {
			continue
		}
		if !until.IsZero() && !r.Period.Before(until) {
			continue
		}
		out.Records = append(out.Records, r)
	}
	return out
}

// LastMonths returns the trailing n months of a history.
func LastMonths(h model.History, n int) model.History {
	if n <= 0 || n >= h.Len() {
		return h
	}
	return model.History{Categories: h.Categories, Records: h.Records[h.Len()-n:]}
}

// Summarize computes top-level statistics across a history.
func Summarize(h model.History) model.Summary {
	var s model.Summary
	if h.Len() == 0 {
		return s
	}

	s.Months = h.Len()
	s.From = h.Records[0].Period
	s.To = h.Last().Period

	var wageSum, savingsRateSum float64
	var wageMonths int
	for _, r := range h.Records {
		s.TotalExpense += r.Total
		if r.Wage > 0 {
			wageSum += r.Wage
			savingsRateSum += (r.Wage - r.Total) / r.Wage
			wageMonths++
		}
	}

	s.AvgExpense = s.TotalExpense / float64(s.Months)
	if wageMonths > 0 {
		s.AvgWage = wageSum / float64(wageMonths)
		s.SavingsRate = savingsRateSum / float64(wageMonths)
	}
	s.LastWage = h.Last().Wage
	s.LastExpense = h.Last().Total

	days := s.To.AddDate(0, 1, 0).Sub(s.From).Hours() / 24
	if days > 0 {
		s.ExpensePerDay = s.TotalExpense / days
	}
	return s
}

// AggregateMonths returns one row per month for tables and charts.
func AggregateMonths(h model.History) []model.MonthlyStats {
	out := make([]model.MonthlyStats, 0, h.Len())
	for _, r := range h.Records {
		out = append(out, model.MonthlyStats{
			Period:  r.Period,
			Wage:    r.Wage,
			Expense: r.Total,
			Savings: r.Wage - r.Total,
		})
	}
	return out
}

// AggregateCategories computes each category's share of spending over the
// history, sorted by total descending.
func AggregateCategories(h model.History) []model.CategoryShare {
	if h.Len() == 0 {
		return nil
	}

	var grand float64
	shares := make([]model.CategoryShare, 0, len(h.Categories))
	for _, c := range h.Categories {
		y, _ := h.Series(c)
		var total float64
		for _, v := range y {
			total += v
		}
		grand += total

		cs := model.CategoryShare{
			Category: c,
			Total:    total,
			Average:  total / float64(len(y)),
		}
		last := y[len(y)-1]
		switch {
		case last > cs.Average*1.02:
			cs.TrendDirection = 1
		case last < cs.Average*0.98:
			cs.TrendDirection = -1
		}
		shares = append(shares, cs)
	}

	if grand > 0 {
		for i := range shares {
			shares[i].SharePercent = shares[i].Total / grand * 100
		}
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Total > shares[j].Total
	})
	return shares
}

// Budget compares the next projected month against the latest wage.
func Budget(h model.History, f *model.Forecast) model.BudgetStats {
	var b model.BudgetStats
	if h.Len() == 0 {
		return b
	}
	b.Wage = h.Last().Wage
	b.CurrentSpend = h.Last().Total
	if f != nil && f.Horizon() > 0 {
		b.ProjectedSpend = projectedTotal(f.Records[0], f)
		for _, r := range f.Records {
			b.ProjectedHorizon += projectedTotal(r, f)
		}
	}
	b.Headroom = b.Wage - b.ProjectedSpend
	if b.Wage > 0 {
		b.BudgetUsedPercent = b.ProjectedSpend / b.Wage * 100
	}
	return b
}

// projectedTotal uses the total projection when present, else the sum of
// category projections.
func projectedTotal(r model.ForecastRecord, f *model.Forecast) float64 {
	for _, s := range f.Series {
		if s == model.TotalSeries {
			return r.Total
		}
	}
	var sum float64
	for _, v := range r.Categories {
		sum += v
	}
	return sum
}
