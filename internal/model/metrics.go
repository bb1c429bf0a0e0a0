package model

import "time"

// SeriesMetrics holds the derived forecast metrics for one series.
type SeriesMetrics struct {
	Series             string
	AvgMonthlyIncrease float64
	TotalIncreasePct   float64
	RecentTrend        float64 // percent change over the trailing 6 months

	// Err is set when any metric could not be computed for the series.
	Err error
}

// MetricsResult is the metrics for every forecast series, in forecast order.
type MetricsResult struct {
	Horizon int
	Series  []SeriesMetrics
}

// Get returns the metrics for one series.
func (m MetricsResult) Get(name string) (SeriesMetrics, bool) {
	for _, s := range m.Series {
		if s.Series == name {
			return s, true
		}
	}
	return SeriesMetrics{}, false
}

// Summary holds top-level aggregates across a history.
type Summary struct {
	Months        int
	From          time.Time
	To            time.Time
	AvgWage       float64
	AvgExpense    float64
	TotalExpense  float64
	SavingsRate   float64 // (wage - expense) / wage, averaged over the period
	LastWage      float64
	LastExpense   float64
	ExpensePerDay float64
}

// CategoryShare is one category's portion of spending over a window.
type CategoryShare struct {
	Category       string
	Total          float64
	Average        float64
	SharePercent   float64
	TrendDirection int // -1, 0, +1 last month vs window average
}

// MonthlyStats is one month as shown in tables and charts.
type MonthlyStats struct {
	Period  time.Time
	Wage    float64
	Expense float64
	Savings float64
}
