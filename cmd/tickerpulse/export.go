package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tickerpulse/tickerpulse/internal/common"
	"github.com/tickerpulse/tickerpulse/internal/model"
	"github.com/tickerpulse/tickerpulse/internal/storage"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored sentiment records to CSV",
		RunE:  runExport,
	}

	cmd.Flags().String("output", "", "output file (default: stdout)")
	cmd.Flags().String("symbol", "", "export only records for this symbol")
	cmd.Flags().Int("limit", 0, "maximum number of records (default: all recent, capped at 10000)")

	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	limit, _ := cmd.Flags().GetInt("limit")

	records, err := fetchRecords(ctx, store, symbol, limit)
	if err != nil {
		return err
	}

	out := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	if err := writeCSV(out, records); err != nil {
		return err
	}

	slog.Info("export complete", "records", len(records))
	return nil
}

// fetchRecords selects the export set: all records for one symbol, or the
// most recent across the board. An unknown symbol is a user-facing error
// rather than an empty file.
func fetchRecords(ctx context.Context, store *storage.SentimentStore, symbol string, limit int) ([]model.SentimentRecord, error) {
	if limit <= 0 {
		limit = 10000
	}

	if symbol != "" {
		records, err := store.ListBySymbol(ctx, symbol)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, common.NewUserError(
				fmt.Sprintf("no sentiment records stored for %s", symbol),
				common.ErrNotFound)
		}
		if len(records) > limit {
			records = records[:limit]
		}
		return records, nil
	}

	return store.ListRecent(ctx, limit)
}

func writeCSV(out io.Writer, records []model.SentimentRecord) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"ticker", "sentiment_score", "confidence_level", "sentiment_label", "key_rationale", "platform", "created_at"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		row := []string{
			rec.Symbol,
			strconv.FormatFloat(rec.Score, 'f', 4, 64),
			strconv.FormatFloat(rec.Confidence, 'f', 4, 64),
			string(rec.Label),
			rec.Rationale,
			rec.Source,
			rec.AnalyzedAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
