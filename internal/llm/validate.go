package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/tickerpulse/tickerpulse/internal/model"
)

// requiredKeys are the fields every sentiment element must carry. Elements
// missing any of them are dropped individually; they never fail the batch.
var requiredKeys = []string{
	"symbol",
	"sentiment_score",
	"sentiment_confidence",
	"sentiment_label",
	"key_rationale",
}

// stripFences removes markdown code-fence markers that models wrap around
// JSON output.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseRecords turns untrusted model text into validated sentiment records.
//
// A top-level object is accepted as a one-element list, since providers
// sometimes omit the array wrapper for a single result. A top-level value
// that is neither object nor array, or text that is not JSON at all, is a
// parse error. Individual elements that fail the schema are dropped with a
// warning; an empty surviving list is a valid result, distinct from a parse
// failure.
//
// Out-of-range scores and confidences are retained with a warning rather
// than dropped: the schema gate here is presence and type, range is a
// quality signal. The strict gate lives on model.SentimentRecord.Validate.
func parseRecords(text string, logger *slog.Logger) ([]model.SentimentRecord, error) {
	clean := stripFences(text)

	var top any
	if err := json.Unmarshal([]byte(clean), &top); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from model response: %w", err)
	}

	var items []any
	switch v := top.(type) {
	case map[string]any:
		logger.Warn("received a single object instead of a list, wrapping")
		items = []any{v}
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("expected a JSON object or array at top level, got %T", top)
	}

	records := make([]model.SentimentRecord, 0, len(items))
	for _, item := range items {
		obj, isObj := item.(map[string]any)
		if !isObj {
			logger.Warn("dropping non-object element", "element", item)
			continue
		}

		if missing := missingKeys(obj); len(missing) > 0 {
			logger.Warn("dropping element missing required keys", "missing", missing)
			continue
		}

		symbol, _ := obj["symbol"].(string)
		if symbol == "" {
			logger.Warn("dropping element with empty or non-string symbol")
			continue
		}

		score, okScore := coerceFloat(obj["sentiment_score"])
		confidence, okConf := coerceFloat(obj["sentiment_confidence"])
		if !okScore || !okConf {
			logger.Warn("dropping element with non-numeric sentiment fields", "symbol", symbol)
			continue
		}

		if score < -1.0 || score > 1.0 {
			logger.Warn("sentiment score out of range, keeping record",
				"symbol", symbol, "score", score)
		}
		if confidence < 0.0 || confidence > 1.0 {
			logger.Warn("sentiment confidence out of range, keeping record",
				"symbol", symbol, "confidence", confidence)
		}

		records = append(records, model.SentimentRecord{
			Symbol:     symbol,
			Score:      score,
			Confidence: confidence,
			Label:      model.SentimentLabel(fmt.Sprint(obj["sentiment_label"])),
			Rationale:  fmt.Sprint(obj["key_rationale"]),
		})
	}

	return records, nil
}

// missingKeys reports which required keys are absent from an element.
func missingKeys(obj map[string]any) []string {
	var missing []string
	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// coerceFloat converts a JSON value to float64, accepting numbers and
// numeric strings.
func coerceFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
