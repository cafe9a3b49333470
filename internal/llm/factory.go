package llm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tickerpulse/tickerpulse/internal/common"
)

// NewClient creates a provider client based on the provided configuration,
// wiring in the per-provider rate limiter, the shared quota store file, and
// the system prompt resource. Construction fails fast on a missing
// credential, missing prompt, or nonsensical quota settings; by the time a
// Client exists every per-call failure mode degrades to the "no response"
// sentinel.
func NewClient(cfg Config, logger *slog.Logger) (Client, error) {
	provider := strings.ToLower(cfg.Provider)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key for provider %s", common.ErrMissingConfig, provider)
	}
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("%w: requests per minute must be positive, got %d", common.ErrInvalidConfig, cfg.RequestsPerMinute)
	}
	if cfg.RequestsPerDay <= 0 {
		return nil, fmt.Errorf("%w: requests per day must be positive, got %d", common.ErrInvalidConfig, cfg.RequestsPerDay)
	}
	if cfg.StatePath == "" {
		return nil, fmt.Errorf("%w: rate limit state path is required", common.ErrMissingConfig)
	}

	systemPrompt, err := loadSystemPrompt(cfg.PromptPath)
	if err != nil {
		return nil, err
	}

	store := newQuotaStore(cfg.StatePath, logger)
	limiter := newRateLimiter(provider, cfg.RequestsPerMinute, cfg.RequestsPerDay, store, logger)

	switch provider {
	case "gemini":
		return newGeminiClient(cfg, limiter, systemPrompt, logger)
	case "mistral":
		return newMistralClient(cfg, limiter, systemPrompt, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s (available: gemini, mistral)", cfg.Provider)
	}
}
