package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/source"
	"github.com/theirongolddev/finassist/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if existing := config.GetAPIKey(cfg); existing != "" {
		fmt.Printf("\n  Current API key: %s (leave blank to keep)\n", maskAPIKey(existing))
	}

	cfg, err = tui.RunSetup(cfg)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	if df, err := source.Discover(cfg.General.DataFile); err == nil {
		fmt.Printf("  History file: %s (%d bytes)\n", df.Path, df.Size)
	} else {
		fmt.Fprintf(os.Stderr, "  History file %s not found; create one with `finassist generate`\n", cfg.General.DataFile)
	}
	fmt.Println("  Run `finassist setup` anytime to reconfigure.")
	fmt.Println()
	return nil
}

func maskAPIKey(key string) string {
	if len(key) > 16 {
		return key[:8] + "..." + key[len(key)-4:]
	}
	if len(key) > 4 {
		return key[:4] + "..."
	}
	return "****"
}
