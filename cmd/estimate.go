package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/report"
	"github.com/theirongolddev/finassist/internal/source"
)

var flagEstimateYear int

var estimateCmd = &cobra.Command{
	Use:   "estimate [file]",
	Short: "Quick 3-month estimate from a raw expense listing",
	Long: "Reads a comma-separated listing (header of category names, then one row per\n" +
		"month: month index, category values, total) from file or stdin and prints\n" +
		"an inflation-adjusted estimate for the next three months.",
	Args: cobra.MaximumNArgs(1),
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().IntVar(&flagEstimateYear, "year", time.Now().Year(), "Year of the last listed month")
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setupRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	text, err := readRaw(args)
	if err != nil {
		return err
	}
	table, err := source.ParseRawExpenses(text)
	if err != nil {
		return err
	}

	ctx := contextOf(cmd)
	if d := fitTimeout(cfg); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	f, err := forecast.Estimate(ctx, table.ToHistory(flagEstimateYear), logger)
	if err != nil {
		return err
	}
	fmt.Print(report.Estimate(*f))
	return nil
}

func readRaw(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0]) //nolint:gosec // path given by the local user
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", model.ErrFileNotFound, args[0])
		}
		return "", err
	}
	return string(data), nil
}
