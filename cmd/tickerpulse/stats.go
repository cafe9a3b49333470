package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickerpulse/tickerpulse/internal/storage"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-symbol sentiment aggregates",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	summaries, err := store.Summarize(ctx)
	if err != nil {
		return err
	}

	return renderSummaries(os.Stdout, summaries)
}

// renderSummaries prints the aggregate table, most-discussed symbol first.
func renderSummaries(w io.Writer, summaries []storage.SymbolSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No sentiment records stored.")
		return err
	}

	if _, err := fmt.Fprintf(w, "%-8s %10s %12s %16s\n", "SYMBOL", "MENTIONS", "AVG SCORE", "AVG CONFIDENCE"); err != nil {
		return err
	}
	for _, sum := range summaries {
		if _, err := fmt.Fprintf(w, "%-8s %10d %12.4f %16.4f\n",
			sum.Symbol, sum.Count, sum.AvgScore, sum.AvgConfidence); err != nil {
			return err
		}
	}
	return nil
}
