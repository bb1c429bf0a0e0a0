// Package cmd implements the finassist CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Data file:      %s\n", cfg.General.DataFile)
	fmt.Printf("    Forecast file:  %s\n", cfg.General.ForecastFile)
	fmt.Printf("    Currency:       %s\n", currency(cfg))
	fmt.Println()

	fmt.Println("  [LLM]")
	if apiKey := config.GetAPIKey(cfg); apiKey != "" {
		fmt.Printf("    API key:   %s\n", maskAPIKey(apiKey))
	} else {
		fmt.Println("    API key:   not configured")
	}
	fmt.Printf("    Model:     %s\n", cfg.LLM.Model)
	fmt.Printf("    Embedding: %s\n", cfg.LLM.EmbeddingModel)
	if cfg.LLM.BaseURL != "" {
		fmt.Printf("    Base URL:  %s\n", cfg.LLM.BaseURL)
	}
	fmt.Println()

	fmt.Println("  [Forecast]")
	fmt.Printf("    Horizon:        %d months\n", cfg.Forecast.Horizon)
	fmt.Printf("    Season length:  %d\n", cfg.Forecast.SeasonLength)
	fmt.Printf("    Damped trend:   %v\n", cfg.Forecast.Damped)
	fmt.Println()

	fmt.Println("  [RAG]")
	fmt.Printf("    Store:   %s\n", config.RAGDir(cfg))
	fmt.Printf("    Pages:   %d\n", len(cfg.RAG.URLs))
	fmt.Printf("    Top K:   %d\n", cfg.RAG.TopK)
	fmt.Println()

	fmt.Println("  [Alarm]")
	fmt.Printf("    Schedule: %s\n", cfg.Alarm.Schedule)
	if cfg.Alarm.SMTPHost != "" && cfg.Alarm.To != "" {
		fmt.Printf("    Delivery: e-mail via %s:%d to %s\n", cfg.Alarm.SMTPHost, cfg.Alarm.SMTPPort, cfg.Alarm.To)
	} else {
		fmt.Println("    Delivery: log only")
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address: %s\n", cfg.Server.Addr)
	fmt.Printf("    Refresh: every %ds\n", cfg.Server.RefreshSeconds)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Run `finassist setup` to reconfigure.")
	return nil
}
