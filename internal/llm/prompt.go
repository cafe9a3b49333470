package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tickerpulse/tickerpulse/internal/common"
)

// loadSystemPrompt reads the system prompt resource once at client
// construction. A missing or unreadable file is a configuration error:
// every call would fail anyway, so fail fast at startup.
func loadSystemPrompt(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: system prompt path is required", common.ErrMissingConfig)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: system prompt file not found: %s", common.ErrMissingConfig, path)
		}
		return "", fmt.Errorf("%w: failed to read system prompt %s: %v", common.ErrInvalidConfig, path, err)
	}

	prompt := strings.TrimSpace(string(buf))
	if prompt == "" {
		slog.Warn("system prompt file is empty", "path", path)
	}

	return prompt, nil
}

// maskKey renders a credential for logging: a fixed-width mask plus the
// last four characters, never the key itself.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "INVALID"
	}
	return "****" + key[len(key)-4:]
}
