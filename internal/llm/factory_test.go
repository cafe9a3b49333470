package llm

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerpulse/tickerpulse/internal/common"
)

func writePromptFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompt.txt")
	require.NoError(t, os.WriteFile(path, []byte("You are a sentiment analyst."), 0o600))
	return path
}

func validConfig(t *testing.T, provider string) Config {
	t.Helper()
	return Config{
		Provider:          provider,
		APIKey:            "test-key-1234567890",
		PromptPath:        writePromptFile(t),
		StatePath:         filepath.Join(t.TempDir(), "state.json"),
		RequestsPerMinute: 10,
		RequestsPerDay:    100,
		Timeout:           time.Second,
	}
}

func TestNewClient(t *testing.T) {
	t.Run("gemini", func(t *testing.T) {
		client, err := NewClient(validConfig(t, "gemini"), testLogger())
		require.NoError(t, err)
		assert.Equal(t, "gemini", client.Provider())
		assert.Equal(t, "gemini-2.0-flash", client.Model())
	})

	t.Run("mistral", func(t *testing.T) {
		client, err := NewClient(validConfig(t, "mistral"), testLogger())
		require.NoError(t, err)
		assert.Equal(t, "mistral", client.Provider())
		assert.Equal(t, "mistral-small-latest", client.Model())
	})

	t.Run("provider name is case-insensitive", func(t *testing.T) {
		client, err := NewClient(validConfig(t, "Gemini"), testLogger())
		require.NoError(t, err)
		assert.Equal(t, "gemini", client.Provider())
	})

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := NewClient(validConfig(t, "openai"), testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported LLM provider")
	})

	t.Run("configuration failures", func(t *testing.T) {
		tests := []struct {
			mutate  func(*Config)
			wantErr error
			name    string
		}{
			{
				name:    "missing API key",
				mutate:  func(c *Config) { c.APIKey = "" },
				wantErr: common.ErrMissingConfig,
			},
			{
				name:    "zero requests per minute",
				mutate:  func(c *Config) { c.RequestsPerMinute = 0 },
				wantErr: common.ErrInvalidConfig,
			},
			{
				name:    "negative requests per day",
				mutate:  func(c *Config) { c.RequestsPerDay = -1 },
				wantErr: common.ErrInvalidConfig,
			},
			{
				name:    "missing state path",
				mutate:  func(c *Config) { c.StatePath = "" },
				wantErr: common.ErrMissingConfig,
			},
			{
				name:    "missing prompt file",
				mutate:  func(c *Config) { c.PromptPath = filepath.Join(c.StatePath, "nope.txt") },
				wantErr: common.ErrMissingConfig,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := validConfig(t, "gemini")
				tt.mutate(&cfg)

				_, err := NewClient(cfg, testLogger())
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****7890", maskKey("test-key-1234567890"))
	assert.Equal(t, "INVALID", maskKey("short"))
	assert.Equal(t, "INVALID", maskKey(""))
}
