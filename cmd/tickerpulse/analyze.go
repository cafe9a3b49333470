package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tickerpulse/tickerpulse/internal/common"
	"github.com/tickerpulse/tickerpulse/internal/config"
	"github.com/tickerpulse/tickerpulse/internal/ingest"
	"github.com/tickerpulse/tickerpulse/internal/llm"
	"github.com/tickerpulse/tickerpulse/internal/model"
	"github.com/tickerpulse/tickerpulse/internal/storage"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run sentiment analysis over pending discussion dumps",
		Long: `Reads every pending .txt block from the input directory, asks the
configured LLM provider for structured sentiment judgments, and persists the
validated records. Stops scheduling immediately once the provider's daily
quota is spent; individual failures skip the block and move on.`,
		RunE: runAnalyze,
	}

	cmd.Flags().String("input", "data/pending", "directory of pending .txt discussion dumps")
	cmd.Flags().Bool("keep-inputs", false, "do not move analyzed files into processed/")
	_ = viper.BindPFlag("analyze.input", cmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("analyze.keep_inputs", cmd.Flags().Lookup("keep-inputs"))

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	analyzer, err := createAnalyzer()
	if err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	reader, err := ingest.NewReader(config.ExpandPath(viper.GetString("analyze.input")))
	if err != nil {
		return err
	}

	blocks, readErrs := reader.Blocks()
	for _, readErr := range readErrs {
		slog.Warn("skipping unreadable input", "error", readErr)
	}
	if len(blocks) == 0 {
		slog.Info("no pending input blocks")
		return nil
	}

	bar := progressbar.NewOptions(len(blocks),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Analyzing discussion blocks..."),
	)

	retryOpts := common.RetryOptions{
		MaxAttempts:  viper.GetInt("llm.max_retries"),
		InitialDelay: viper.GetDuration("llm.retry_delay"),
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var analyzed, saved, skipped int
	for _, block := range blocks {
		records, err := analyzeBlock(ctx, analyzer, block, retryOpts)
		switch {
		case errors.Is(err, common.ErrQuotaExceeded):
			// The remainder of the day is lost for this provider; leave the
			// remaining blocks pending for the next run.
			common.LogError(err, "daily quota exhausted, stopping", common.Fields{
				"provider": analyzer.Provider(),
				"pending":  len(blocks) - analyzed,
			})
			return common.NewUserError(
				fmt.Sprintf("daily %s quota exhausted; remaining inputs stay pending until the next reset", analyzer.Provider()),
				err)
		case err != nil && ctx.Err() != nil:
			return err
		case err != nil:
			slog.Warn("block yielded no usable response, skipping",
				"block", block.Name,
				"error", err)
			skipped++
			_ = bar.Add(1)
			continue
		}

		count, err := store.SaveRecords(ctx, block.Name, records)
		if err != nil {
			return fmt.Errorf("failed to save records for %s: %w", block.Name, err)
		}
		saved += count
		analyzed++

		if !viper.GetBool("analyze.keep_inputs") {
			if err := reader.MarkProcessed(block); err != nil {
				slog.Warn("failed to archive processed input", "block", block.Name, "error", err)
			}
		}
		_ = bar.Add(1)
	}

	common.LogInfo("analysis run complete", common.Fields{
		"blocks_analyzed": analyzed,
		"blocks_skipped":  skipped,
		"records_saved":   saved,
	})
	return nil
}

// analyzeBlock runs one block through the pipeline, retrying soft "no
// response" outcomes with backoff. Retry lives here, outside the client:
// the pipeline itself never retries, and a spent quota aborts immediately.
func analyzeBlock(ctx context.Context, analyzer *llm.Analyzer, block ingest.Block, opts common.RetryOptions) ([]model.SentimentRecord, error) {
	var records []model.SentimentRecord

	err := common.WithRetry(ctx, func() error {
		result, err := analyzer.GetResponse(ctx, block.Text)
		if err != nil {
			// Classify hard failures explicitly so a spent quota or a dead
			// context stops the retry loop on the first attempt.
			return &common.RetryableError{Err: err, Retryable: common.IsRetryable(err)}
		}
		if result == nil {
			return &common.RetryableError{
				Err:       fmt.Errorf("no response for block %s", block.Name),
				Retryable: true,
			}
		}
		records = result
		return nil
	}, opts)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// openStore opens the sentiment database at the configured path.
func openStore() (*storage.SentimentStore, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	return storage.NewSentimentStore(dbPath)
}
