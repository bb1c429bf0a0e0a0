package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/pipeline"
)

var flagSummaryMonths int

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Spending summary with next-month projection",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().IntVarP(&flagSummaryMonths, "months", "n", 12, "Trailing months to summarize (0 = all)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setupRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	result, err := loadResult(contextOf(cmd), cfg, newEngine(cfg, logger))
	if err != nil {
		return err
	}
	cur := currency(cfg)

	window := pipeline.LastMonths(result.History, flagSummaryMonths)
	stats := pipeline.Summarize(window)
	if stats.Months == 0 {
		fmt.Println("\n  No months in the history file.")
		return nil
	}

	// Previous window of the same length, for comparison.
	var prev model.Summary
	if n := window.Len(); n < result.History.Len() {
		start := window.Records[0].Period
		prev = pipeline.Summarize(pipeline.FilterByTime(result.History, start.AddDate(0, -n, 0), start))
	}
	budget := pipeline.Budget(result.History, result.Forecast)

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("SPENDING  %s to %s",
		cli.FormatPeriod(stats.From), cli.FormatPeriod(stats.To))))
	fmt.Println()

	avgExpense := cli.FormatMoney(stats.AvgExpense, cur)
	if prev.AvgExpense > 0 {
		avgExpense += fmt.Sprintf("  (%s vs prev %dm)",
			cli.RenderChange((stats.AvgExpense-prev.AvgExpense)/prev.AvgExpense*100), stats.Months)
	}

	rows := [][]string{
		{"Months", cli.FormatNumber(int64(stats.Months))},
		{"Total Expense", cli.FormatMoney(stats.TotalExpense, cur)},
		{"Avg Expense", avgExpense},
		{"Avg Wage", cli.FormatMoney(stats.AvgWage, cur)},
		{"Savings Rate", cli.FormatRatio(stats.SavingsRate)},
		{"Expense/day", cli.FormatMoney(stats.ExpensePerDay, cur)},
		{"---"},
		{"Last Month", cli.FormatMoney(stats.LastExpense, cur)},
		{"Next Month (proj)", cli.FormatMoney(budget.ProjectedSpend, cur)},
		{fmt.Sprintf("Next %d Months", result.Forecast.Horizon()), cli.FormatMoney(budget.ProjectedHorizon, cur)},
	}
	if budget.Wage > 0 {
		rows = append(rows,
			[]string{"Wage Used (proj)", cli.FormatPercent(budget.BudgetUsedPercent)},
			[]string{"Headroom", cli.FormatSignedMoney(budget.Headroom, cur)},
		)
	}
	if m, ok := result.Metrics.Get(model.TotalSeries); ok && m.Err == nil {
		rows = append(rows, []string{"Recent Trend (6m)", cli.RenderChange(m.RecentTrend)})
	}
	totals, _ := window.Series(model.TotalSeries)
	rows = append(rows, []string{"---"}, []string{"Trend", cli.RenderSparkline(totals)})

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
