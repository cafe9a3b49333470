package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tickerpulse/tickerpulse/internal/model"
)

// SymbolSummary aggregates stored sentiment for one symbol.
type SymbolSummary struct {
	Symbol        string
	AvgScore      float64
	AvgConfidence float64
	Count         int
}

// SaveRecords persists a batch of sentiment records in one transaction,
// tagging each with its source. Records that fail the strict schema check
// are skipped with a warning rather than failing the batch; the returned
// count is the number actually written.
func (s *SentimentStore) SaveRecords(ctx context.Context, source string, records []model.SentimentRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sentiments (symbol, score, confidence, label, rationale, source, analyzed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	saved := 0
	now := time.Now().UTC()
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			slog.Warn("skipping record that fails strict validation",
				"symbol", rec.Symbol,
				"error", err)
			continue
		}

		analyzedAt := rec.AnalyzedAt
		if analyzedAt.IsZero() {
			analyzedAt = now
		}

		if _, err := stmt.ExecContext(ctx,
			rec.Symbol, rec.Score, rec.Confidence, string(rec.Label),
			rec.Rationale, source, analyzedAt); err != nil {
			return 0, fmt.Errorf("failed to insert sentiment for %s: %w", rec.Symbol, err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sentiments: %w", err)
	}

	return saved, nil
}

// ListRecent returns the most recently analyzed records, newest first.
func (s *SentimentStore) ListRecent(ctx context.Context, limit int) ([]model.SentimentRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, score, confidence, label, rationale, source, analyzed_at
		FROM sentiments
		ORDER BY analyzed_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// ListBySymbol returns all records for one symbol, newest first.
func (s *SentimentStore) ListBySymbol(ctx context.Context, symbol string) ([]model.SentimentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, score, confidence, label, rationale, source, analyzed_at
		FROM sentiments
		WHERE symbol = ?
		ORDER BY analyzed_at DESC, id DESC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiments for %s: %w", symbol, err)
	}
	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// Summarize aggregates stored sentiment per symbol, most-discussed first.
func (s *SentimentStore) Summarize(ctx context.Context) ([]SymbolSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, AVG(score), AVG(confidence), COUNT(*)
		FROM sentiments
		GROUP BY symbol
		ORDER BY COUNT(*) DESC, symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize sentiments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []SymbolSummary
	for rows.Next() {
		var sum SymbolSummary
		if err := rows.Scan(&sum.Symbol, &sum.AvgScore, &sum.AvgConfidence, &sum.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows rowScanner) ([]model.SentimentRecord, error) {
	var records []model.SentimentRecord
	for rows.Next() {
		var rec model.SentimentRecord
		var label string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Score, &rec.Confidence,
			&label, &rec.Rationale, &rec.Source, &rec.AnalyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment row: %w", err)
		}
		rec.Label = model.SentimentLabel(label)
		records = append(records, rec)
	}

	return records, rows.Err()
}
