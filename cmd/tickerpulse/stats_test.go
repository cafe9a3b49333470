package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerpulse/tickerpulse/internal/storage"
)

func TestRenderSummaries(t *testing.T) {
	t.Run("renders one row per symbol", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, renderSummaries(&buf, []storage.SymbolSummary{
			{Symbol: "AAPL", AvgScore: 0.35, AvgConfidence: 0.7, Count: 2},
			{Symbol: "TSLA", AvgScore: -0.4, AvgConfidence: 0.9, Count: 1},
		}))

		out := buf.String()
		assert.Contains(t, out, "SYMBOL")
		assert.Contains(t, out, "AAPL")
		assert.Contains(t, out, "0.3500")
		assert.Contains(t, out, "TSLA")

		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.Len(t, lines, 3)
	})

	t.Run("empty store prints a notice", func(t *testing.T) {
		var buf strings.Builder
		require.NoError(t, renderSummaries(&buf, nil))
		assert.Contains(t, buf.String(), "No sentiment records stored.")
	})
}
