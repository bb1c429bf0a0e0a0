package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/forecast"
	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/model"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/store"
)

var (
	flagData     string
	flagNoCache  bool
	flagQuiet    bool
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "finassist",
	Short:         "Personal finance assistant",
	Long:          "Forecast monthly expenses, chat about your spending and look up banking terms.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderError(describeError(err)))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagData, "data", "d", "", "Expense history CSV (default from config)")
	rootCmd.PersistentFlags().BoolVar(&flagNoCache, "no-cache", false, "Skip the forecast cache, refit everything")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig reads .env and the config file, then applies flag overrides.
func loadConfig() (config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return config.DefaultConfig(), err
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if flagData != "" {
		cfg.General.DataFile = flagData
	}
	if flagLogLevel != "" {
		cfg.Logging.Level = flagLogLevel
	}
	return cfg, nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	return logger, nil
}

// setupRuntime is the common prologue of every command.
func setupRuntime() (config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, logger, nil
}

func newEngine(cfg config.Config, logger *zap.Logger) *forecast.Engine {
	return forecast.New(forecast.OptionsFromConfig(cfg.Forecast), logger)
}

// newProvider builds the shared data provider for long-running commands.
func newProvider(cfg config.Config, logger *zap.Logger) *pipeline.Provider {
	cachePath := pipeline.CachePath()
	if flagNoCache {
		cachePath = ""
	}
	p := pipeline.NewProvider(cfg.General.DataFile, newEngine(cfg, logger), cachePath, logger)
	p.SetFitTimeout(fitTimeout(cfg))
	return p
}

func fitTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.Forecast.TimeoutSeconds) * time.Second
}

// loadResult is the shared load-and-forecast path used by the one-shot
// commands. It uses the SQLite cache when available.
func loadResult(ctx context.Context, cfg config.Config, engine *forecast.Engine) (*pipeline.Result, error) {
	path := cfg.General.DataFile
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Loading %s...\n", path)
	}

	if d := fitTimeout(cfg); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Fitting [%d/%d]", current, total)
	}

	if !flagNoCache {
		cache, err := store.Open(pipeline.CachePath())
		if err != nil {
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Cache unavailable, fitting from scratch\n")
			}
		} else {
			defer func() { _ = cache.Close() }()

			res, err := pipeline.RunWithCache(ctx, path, engine, cache, progressFn)
			if err != nil {
				return nil, err
			}
			if !flagQuiet {
				switch {
				case res.CacheHit:
					fmt.Fprintf(os.Stderr, "  Loaded %d months, forecast from cache\n", res.History.Len())
				case res.CacheErr != nil:
					fmt.Fprintf(os.Stderr, "\n  Cache error (%v), result not saved\n", res.CacheErr)
				default:
					fmt.Fprintf(os.Stderr, "\r  Fitted %d series over %d months in %s\n",
						len(res.Forecast.Series), res.History.Len(), res.Elapsed.Round(time.Millisecond))
				}
			}
			return res, nil
		}
	}

	res, err := pipeline.Run(ctx, path, engine, progressFn)
	if err != nil {
		return nil, err
	}
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r  Fitted %d series over %d months in %s\n",
			len(res.Forecast.Series), res.History.Len(), res.Elapsed.Round(time.Millisecond))
	}
	return res, nil
}

// describeError turns pipeline sentinels into a hint the user can act on.
func describeError(err error) string {
	switch {
	case errors.Is(err, model.ErrFileNotFound):
		return fmt.Sprintf("%v\n  Create one with `finassist generate` or pass --data.", err)
	case errors.Is(err, model.ErrInsufficientHistory):
		return fmt.Sprintf("%v\n  The forecast needs more months of history.", err)
	default:
		return err.Error()
	}
}

func currency(cfg config.Config) string {
	if cfg.General.Currency == "" {
		return cli.DefaultCurrency
	}
	return cfg.General.Currency
}
