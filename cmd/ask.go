package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/logging"
	"github.com/theirongolddev/finassist/internal/rag"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a banking question answered from the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setupRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	client, err := newLLM(cfg, logger)
	if err != nil {
		return err
	}
	answerer, err := openAnswerer(cfg, client, logger)
	if err != nil {
		return err
	}
	if answerer == nil {
		return fmt.Errorf("%w\n  Run `finassist index` first", rag.ErrNotIndexed)
	}

	ctx, cancel := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer cancel()

	stream, err := answerer.Answer(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	defer stream.Cancel()

	for {
		c, ok := stream.Next()
		if !ok {
			break
		}
		if c.Err == nil {
			fmt.Print(c.Text)
		}
	}
	fmt.Println()

	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
