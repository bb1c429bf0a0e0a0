package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/logging"
)

var (
	flagIndexInvalidate bool
	flagIndexShow       bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build or refresh the banking knowledge base",
	Long: "Fetches the configured blog pages, splits them into chunks and embeds them\n" +
		"into the local vector store. Unchanged pages are not re-embedded.",
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagIndexInvalidate, "invalidate", false, "Rebuild even when the pages are unchanged")
	indexCmd.Flags().BoolVar(&flagIndexShow, "show", false, "Show the current index without fetching")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setupRuntime()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	idx, err := openIndex(cfg, logger)
	if err != nil {
		return err
	}

	if !flagIndexShow {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Fetching %d pages...\n", len(cfg.RAG.URLs))
		}
		start := time.Now()
		rebuilt, err := idx.Refresh(contextOf(cmd), flagIndexInvalidate)
		if err != nil {
			return err
		}
		if !flagQuiet {
			if rebuilt {
				fmt.Fprintf(os.Stderr, "  Indexed %d chunks in %s\n", idx.Count(), time.Since(start).Round(time.Millisecond))
			} else {
				fmt.Fprintf(os.Stderr, "  Pages unchanged, index kept\n")
			}
		}
	}

	m := idx.Manifest()
	fmt.Println()
	fmt.Println(cli.RenderTitle("KNOWLEDGE BASE"))
	fmt.Println()
	if !idx.Ready() {
		fmt.Println("  Not indexed. Run `finassist index` to build it.")
		return nil
	}
	rows := [][]string{
		{"Collection", m.Collection},
		{"Chunks", cli.FormatNumber(int64(idx.Count()))},
		{"Built", m.BuiltAt.Local().Format(time.RFC3339)},
		{"---"},
	}
	for _, src := range m.Sources {
		rows = append(rows, []string{"Source", src})
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Field", "Value"},
		Rows:    rows,
	}))
	return nil
}
