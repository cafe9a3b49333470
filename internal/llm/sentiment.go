package llm

import (
	"context"
	"log/slog"

	"github.com/tickerpulse/tickerpulse/internal/model"
)

// Analyzer composes a provider client with response normalization and
// record validation: one call turns a block of discussion text into
// validated sentiment records or a definite absence.
type Analyzer struct {
	client Client
	logger *slog.Logger
}

// NewAnalyzer constructs the provider client for cfg and wraps it in an
// Analyzer.
func NewAnalyzer(cfg Config, logger *slog.Logger) (*Analyzer, error) {
	client, err := NewClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Analyzer{client: client, logger: logger}, nil
}

// NewAnalyzerWithClient wraps an existing client. Used by tests and by
// callers that construct the client themselves.
func NewAnalyzerWithClient(client Client, logger *slog.Logger) *Analyzer {
	return &Analyzer{client: client, logger: logger}
}

// Provider reports the backing provider's name.
func (a *Analyzer) Provider() string { return a.client.Provider() }

// GetResponse runs the full pipeline for one input block:
// acquire quota → send → normalize → validate.
//
// A spent daily quota or canceled context propagates as an error so the
// caller can stop scheduling further calls. Every other failure (transport,
// safety block, unrecognizable payload, unparseable JSON) returns
// (nil, nil) with diagnostic logging, and the caller simply moves on to the
// next input. An empty (but non-nil) slice means the model answered with no
// valid records, which is success.
func (a *Analyzer) GetResponse(ctx context.Context, text string) ([]model.SentimentRecord, error) {
	a.logger.Info("starting response generation sequence", "provider", a.client.Provider())

	raw, err := a.client.SendPrompt(ctx, text)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		a.logger.Error("response generation failed: no raw response", "provider", a.client.Provider())
		return nil, nil
	}

	content, ok := extractText(raw, a.logger)
	if !ok {
		return nil, nil
	}

	a.logger.Debug("raw model response", "provider", a.client.Provider(), "content", content)

	records, err := parseRecords(content, a.logger)
	if err != nil {
		// The raw content is the diagnostic here; without it a parse
		// failure is undebuggable.
		a.logger.Error("failed to parse model response",
			"provider", a.client.Provider(),
			"error", err,
			"content", content)
		return nil, nil
	}

	a.logger.Info("generated and validated records",
		"provider", a.client.Provider(),
		"count", len(records))
	return records, nil
}
