// Package model defines domain types for finassist expense histories and forecasts.
package model

import "time"

// TotalSeries is the reserved series name for the monthly total expense.
const TotalSeries = "Total_Expense"

// ExpenseRecord is one month of observed spending.
type ExpenseRecord struct {
	Period     time.Time // first day of the month, UTC
	Wage       float64
	Total      float64
	Categories map[string]float64
}

// History is an ordered sequence of expense records sharing one category set.
type History struct {
	Categories []string // input column order
	Records    []ExpenseRecord
}

// Len returns the number of months in the history.
func (h History) Len() int { return len(h.Records) }

// Last returns the most recent record. It panics on an empty history.
func (h History) Last() ExpenseRecord { return h.Records[len(h.Records)-1] }

// SeriesNames returns the total followed by every category, in order.
func (h History) SeriesNames() []string {
	names := make([]string, 0, len(h.Categories)+1)
	names = append(names, TotalSeries)
	return append(names, h.Categories...)
}

// Series extracts one series by name. The second return is false when the
// name is neither the total nor a known category.
func (h History) Series(name string) ([]float64, bool) {
	if name != TotalSeries && !h.HasCategory(name) {
		return nil, false
	}
	out := make([]float64, len(h.Records))
	for i, r := range h.Records {
		if name == TotalSeries {
			out[i] = r.Total
		} else {
			out[i] = r.Categories[name]
		}
	}
	return out, true
}

// HasCategory reports whether name is one of the history's categories.
func (h History) HasCategory(name string) bool {
	for _, c := range h.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Since returns the records at or after the given period.
func (h History) Since(from time.Time) History {
	out := History{Categories: h.Categories}
	for _, r := range h.Records {
		if !r.Period.Before(from) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// ForecastRecord is one projected future month.
type ForecastRecord struct {
	Period     time.Time // last day of the month, UTC
	Total      float64
	Categories map[string]float64
}

// Value returns the projection for a series name.
func (r ForecastRecord) Value(name string) float64 {
	if name == TotalSeries {
		return r.Total
	}
	return r.Categories[name]
}

// FitSummary describes the smoothing model chosen for one series.
type FitSummary struct {
	Series   string
	Kind     string // e.g. "holt-winters", "holt"
	Alpha    float64
	Beta     float64
	Gamma    float64
	Phi      float64
	SSE      float64
	Fallback bool // seasonal fit was not possible
}

// Forecast is the full engine output for one history.
type Forecast struct {
	Series  []string // series included, total first when present
	Records []ForecastRecord
	Fits    []FitSummary
}

// Horizon returns the number of projected months.
func (f Forecast) Horizon() int { return len(f.Records) }

// SeriesValues extracts the projected values for one series.
func (f Forecast) SeriesValues(name string) []float64 {
	out := make([]float64, len(f.Records))
	for i, r := range f.Records {
		out[i] = r.Value(name)
	}
	return out
}

// Categories returns the forecast series without the total.
func (f Forecast) Categories() []string {
	out := make([]string, 0, len(f.Series))
	for _, s := range f.Series {
		if s != TotalSeries {
			out = append(out, s)
		}
	}
	return out
}
