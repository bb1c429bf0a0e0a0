package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/finassist/internal/cli"
	"github.com/theirongolddev/finassist/internal/pipeline"
	"github.com/theirongolddev/finassist/internal/source"
	"github.com/theirongolddev/finassist/internal/synth"
)

var (
	flagGenSeed   uint64
	flagGenMonths int
	flagGenStart  string
	flagGenOut    string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic wage and expense history",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().Uint64Var(&flagGenSeed, "seed", 0, "Random seed (0 = from clock)")
	generateCmd.Flags().IntVar(&flagGenMonths, "months", 0, "Months to generate (default from config)")
	generateCmd.Flags().StringVar(&flagGenStart, "start", "", "First month, YYYY-MM (default from config)")
	generateCmd.Flags().StringVarP(&flagGenOut, "out", "o", "", "Output CSV (default: the --data file)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	cfg, _, err := setupRuntime()
	if err != nil {
		return err
	}

	gen := cfg.Generator
	if flagGenMonths > 0 {
		gen.Months = flagGenMonths
	}
	if flagGenStart != "" {
		gen.Start = flagGenStart
	}
	params, err := synth.ParamsFromConfig(gen)
	if err != nil {
		return err
	}

	h, err := synth.Generate(params, synth.NewRand(flagGenSeed))
	if err != nil {
		return err
	}

	out := flagGenOut
	if out == "" {
		out = cfg.General.DataFile
	}
	if err := source.WriteHistoryFile(out, h); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	if !flagQuiet {
		s := pipeline.Summarize(h)
		cur := currency(cfg)
		fmt.Fprintf(os.Stderr, "  Wrote %d months (%s to %s) to %s\n",
			s.Months, cli.FormatPeriod(s.From), cli.FormatPeriod(s.To), out)
		fmt.Fprintf(os.Stderr, "  Expense %s -> %s, wage %s -> %s\n",
			cli.FormatMoney(h.Records[0].Total, cur), cli.FormatMoney(s.LastExpense, cur),
			cli.FormatMoney(h.Records[0].Wage, cur), cli.FormatMoney(s.LastWage, cur))
	}
	return nil
}
