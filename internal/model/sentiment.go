// Package model defines the core domain types shared across the application.
package model

import (
	"fmt"
	"time"
)

// SentimentLabel is the trading signal attached to a sentiment judgment.
type SentimentLabel string

const (
	// LabelBuy indicates positive sentiment toward the instrument.
	LabelBuy SentimentLabel = "BUY"
	// LabelSell indicates negative sentiment toward the instrument.
	LabelSell SentimentLabel = "SELL"
	// LabelNeutral indicates no clear directional sentiment.
	LabelNeutral SentimentLabel = "NEUTRAL"
)

// SentimentRecord is one validated sentiment judgment about a single
// financial instrument, extracted from model output. Records are immutable
// after creation.
type SentimentRecord struct {
	AnalyzedAt time.Time
	Symbol     string
	Label      SentimentLabel
	Rationale  string
	Source     string
	Score      float64
	Confidence float64
	ID         int64
}

// Validate applies the strict schema check: non-empty symbol and numeric
// fields inside their documented ranges. The response validator keeps
// out-of-range records with a warning; callers that need the hard gate
// (e.g. storage before insert) use this instead.
func (r SentimentRecord) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("sentiment record has empty symbol")
	}
	if r.Score < -1.0 || r.Score > 1.0 {
		return fmt.Errorf("sentiment score %.4f out of range [-1.0, 1.0]", r.Score)
	}
	if r.Confidence < 0.0 || r.Confidence > 1.0 {
		return fmt.Errorf("sentiment confidence %.4f out of range [0.0, 1.0]", r.Confidence)
	}
	return nil
}
