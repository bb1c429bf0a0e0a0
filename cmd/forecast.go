package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/report"
	"github.com/theirongolddev/finassist/internal/source"
)

var (
	flagForecastHorizon int
	flagForecastOut     string
	flagForecastNoWrite bool
	flagForecastVerbose bool
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast monthly expenses per category",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().IntVarP(&flagForecastHorizon, "horizon", "H", 0, "Months to project (default from config)")
	forecastCmd.Flags().StringVarP(&flagForecastOut, "out", "o", "", "Forecast CSV (default from config)")
	forecastCmd.Flags().BoolVar(&flagForecastNoWrite, "no-write", false, "Print only, don't write the CSV")
	forecastCmd.Flags().BoolVarP(&flagForecastVerbose, "verbose", "v", false, "Show the fitted model per series")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setupRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	opts := forecast.OptionsFromConfig(cfg.Forecast)
	if flagForecastHorizon > 0 {
		opts.Horizon = flagForecastHorizon
	}

	result, err := loadResult(contextOf(cmd), cfg, forecast.New(opts, logger))
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Print(report.Forecast(*result.Forecast, result.Metrics, currency(cfg)))

	if flagForecastVerbose && len(result.Forecast.Fits) > 0 {
		fmt.Println()
		fmt.Print(report.Fits(*result.Forecast))
	}

	if flagForecastNoWrite {
		return nil
	}
	out := flagForecastOut
	if out == "" {
		out = cfg.General.ForecastFile
	}
	if err := source.WriteForecastFile(out, *result.Forecast); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\n  Forecast saved to %s\n", out)
	}
	return nil
}
