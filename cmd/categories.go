package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/pipeline"
)

var flagCategoriesMonths int

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Spending breakdown by category",
	RunE:  runCategories,
}

func init() {
	categoriesCmd.Flags().IntVarP(&flagCategoriesMonths, "months", "n", 12, "Trailing months to include (0 = all)")
	rootCmd.AddCommand(categoriesCmd)
}

func runCategories(cmd *cobra.Command, _ []string) error {
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

	window := pipeline.LastMonths(result.History, flagCategoriesMonths)
	shares := pipeline.AggregateCategories(window)
	if len(shares) == 0 {
		fmt.Println("\n  No category data in the history file.")
		return nil
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("CATEGORIES  Last %d months", window.Len())))
	fmt.Println()

	var next map[string]float64
	if result.Forecast.Horizon() > 0 {
		next = result.Forecast.Records[0].Categories
	}

	rows := make([][]string, 0, len(shares))
	for _, cs := range shares {
		proj := "-"
		if v, ok := next[cs.Category]; ok {
			proj = cli.FormatMoney(v, cur)
		}
		rows = append(rows, []string{
			config.DisplayName(cs.Category),
			cli.FormatMoney(cs.Total, cur),
			cli.FormatMoney(cs.Average, cur),
			cli.FormatPercent(cs.SharePercent),
			cli.TrendArrow(cs.TrendDirection),
			proj,
		})
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Category", "Total", "Avg/mo", "Share", "Trend", "Next Month"},
		Rows:    rows,
	}))
	return nil
}
