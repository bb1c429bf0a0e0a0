package model

// BudgetStats compares projected spending against income.
type BudgetStats struct {
	Wage              float64
	CurrentSpend      float64
	ProjectedSpend    float64 // first forecast month
	ProjectedHorizon  float64 // sum over the forecast horizon
	Headroom          float64 // wage minus projected spend
	BudgetUsedPercent float64
}
