package llm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaStore(t *testing.T) {
	t.Run("missing file is an empty document", func(t *testing.T) {
		store := newQuotaStore(filepath.Join(t.TempDir(), "state.json"), testLogger())

		_, ok := store.load("gemini")
		assert.False(t, ok)
	})

	t.Run("save and load round-trip", func(t *testing.T) {
		store := newQuotaStore(filepath.Join(t.TempDir(), "state.json"), testLogger())

		require.NoError(t, store.save("gemini", quotaRecord{DailyUsage: 7, LastResetDate: "2026-08-30"}))

		rec, ok := store.load("gemini")
		require.True(t, ok)
		assert.Equal(t, 7, rec.DailyUsage)
		assert.Equal(t, "2026-08-30", rec.LastResetDate)
	})

	t.Run("save merges instead of clobbering siblings", func(t *testing.T) {
		store := newQuotaStore(filepath.Join(t.TempDir(), "state.json"), testLogger())

		require.NoError(t, store.save("gemini", quotaRecord{DailyUsage: 3, LastResetDate: "2026-08-30"}))
		require.NoError(t, store.save("mistral", quotaRecord{DailyUsage: 9, LastResetDate: "2026-08-30"}))
		require.NoError(t, store.save("gemini", quotaRecord{DailyUsage: 4, LastResetDate: "2026-08-30"}))

		rec, ok := store.load("mistral")
		require.True(t, ok)
		assert.Equal(t, 9, rec.DailyUsage)
	})

	t.Run("state directory is created on demand", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
		store := newQuotaStore(path, testLogger())

		require.NoError(t, store.save("gemini", quotaRecord{DailyUsage: 1, LastResetDate: "2026-08-30"}))

		_, err := os.Stat(path)
		require.NoError(t, err)
	})

	t.Run("corrupt file is replaced on save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))
		store := newQuotaStore(path, testLogger())

		require.NoError(t, store.save("gemini", quotaRecord{DailyUsage: 2, LastResetDate: "2026-08-30"}))

		rec, ok := store.load("gemini")
		require.True(t, ok)
		assert.Equal(t, 2, rec.DailyUsage)
	})
}

func TestReadQuotaUsage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := newQuotaStore(path, testLogger())
	require.NoError(t, store.save("mistral", quotaRecord{DailyUsage: 12, LastResetDate: "2026-08-30"}))

	usage, err := ReadQuotaUsage(path)
	require.NoError(t, err)
	require.Contains(t, usage, "mistral")
	assert.Equal(t, 12, usage["mistral"].DailyUsage)

	empty, err := ReadQuotaUsage(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
