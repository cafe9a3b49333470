package llm

import (
	"log/slog"
)

// extractText pulls the single text payload out of a raw provider response
// without knowing which provider produced it. The fallback order is a fixed
// priority list:
//
//  1. the direct text field
//  2. the first choice's nested message body
//  3. the provider output-text field
//  4. the stringified raw body (degraded: unlikely to be structured data)
//
// A blocked response carries no text regardless of what else is populated.
// ok is false when no payload could be recovered.
func extractText(raw *RawResponse, logger *slog.Logger) (text string, ok bool) {
	if raw == nil {
		return "", false
	}

	if raw.Blocked {
		logger.Warn("response withheld by provider safety filter",
			"block_reason", raw.BlockReason)
		return "", false
	}

	if raw.Text != "" {
		return raw.Text, true
	}

	if len(raw.Choices) > 0 && raw.Choices[0].Message.Content != "" {
		return raw.Choices[0].Message.Content, true
	}

	if raw.OutputText != "" {
		return raw.OutputText, true
	}

	if len(raw.Body) > 0 {
		logger.Warn("falling back to stringified raw response; payload is unlikely to be valid structured data")
		return string(raw.Body), true
	}

	return "", false
}
