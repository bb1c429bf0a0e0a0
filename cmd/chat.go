package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/config"
	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive assistant and dashboard",
	RunE:    runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The dashboard owns the terminal, so logs go to a file or nowhere.
	logger, closeLog, err := logging.NewFile(cfg.Logging, tuiLogPath())
	if err != nil {
		return err
	}
	defer closeLog()

	svc, err := newServices(cfg, logger)
	if err != nil {
		return err
	}
	svc.alarms.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		svc.stop(ctx)
	}()

	// Force TrueColor profile so all background styling produces ANSI codes
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Data:      svc.data,
		Assistant: svc.assistant,
		Config:    cfg,
		NeedSetup: !config.Exists(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func tuiLogPath() string {
	return filepath.Join(config.CacheDir(), "finassist-tui.log")
}
