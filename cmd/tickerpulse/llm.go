package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/tickerpulse/tickerpulse/internal/config"
	"github.com/tickerpulse/tickerpulse/internal/llm"
)

// providerDefaults are the free-tier quota limits each provider documents.
// Config can override them, but a misconfigured zero never slips through to
// the limiter.
var providerDefaults = map[string]struct {
	model string
	rpm   int
	rpd   int
}{
	"gemini":  {model: "gemini-2.0-flash", rpm: 15, rpd: 1500},
	"mistral": {model: "mistral-small-latest", rpm: 60, rpd: 1000},
}

// createAnalyzer builds the LLM analyzer from viper configuration.
// Shared by the commands that talk to a provider.
func createAnalyzer() (*llm.Analyzer, error) {
	provider := strings.ToLower(viper.GetString("llm.provider"))
	if provider == "" {
		provider = "gemini"
	}

	defaults, ok := providerDefaults[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	cfg := llm.Config{
		Provider:          provider,
		Model:             viper.GetString("llm.model"),
		PromptPath:        config.ExpandPath(viper.GetString("llm.prompt_path")),
		StatePath:         config.ExpandPath(viper.GetString("llm.state_path")),
		RequestsPerMinute: viper.GetInt("llm.requests_per_minute"),
		RequestsPerDay:    viper.GetInt("llm.requests_per_day"),
		Timeout:           viper.GetDuration("llm.timeout"),
	}

	if cfg.Model == "" {
		cfg.Model = defaults.model
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = defaults.rpm
	}
	if cfg.RequestsPerDay == 0 {
		cfg.RequestsPerDay = defaults.rpd
	}
	if cfg.PromptPath == "" {
		cfg.PromptPath = "prompts/sentiment.txt"
	}
	if cfg.StatePath == "" {
		cfg.StatePath = config.DefaultStatePath()
	}

	// Check viper first, then the provider's environment variable
	envVar := strings.ToUpper(provider) + "_API_KEY"
	apiKey := viper.GetString("llm." + provider + "_api_key")
	if apiKey == "" {
		apiKey = os.Getenv(envVar)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s API key not found in config or %s environment variable", provider, envVar)
	}
	cfg.APIKey = apiKey

	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	analyzer, err := llm.NewAnalyzer(cfg, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return analyzer, nil
}
