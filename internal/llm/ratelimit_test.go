package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickerpulse/tickerpulse/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLimiter(t *testing.T, rpm, rpd int) (*rateLimiter, string) {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "rate_limit_state.json")
	store := newQuotaStore(statePath, testLogger())
	return newRateLimiter("gemini", rpm, rpd, store, testLogger()), statePath
}

func TestRateLimiterDailyQuota(t *testing.T) {
	t.Run("daily cap is a hard failure", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 1000, 3)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			require.NoError(t, rl.acquire(ctx), "acquisition %d should succeed", i+1)
		}

		err := rl.acquire(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrQuotaExceeded)
	})

	t.Run("usage persists across reconstruction", func(t *testing.T) {
		rl, statePath := newTestLimiter(t, 1000, 100)
		ctx := context.Background()

		require.NoError(t, rl.acquire(ctx))
		require.NoError(t, rl.acquire(ctx))

		store := newQuotaStore(statePath, testLogger())
		fresh := newRateLimiter("gemini", 1000, 100, store, testLogger())
		assert.Equal(t, 2, fresh.dailyUsage)
	})

	t.Run("day rollover resets usage before the quota check", func(t *testing.T) {
		statePath := filepath.Join(t.TempDir(), "state.json")
		yesterday := time.Now().AddDate(0, 0, -1).Format(dateLayout)
		seed := fmt.Sprintf(`{"gemini": {"daily_usage": 5, "last_reset_date": %q}}`, yesterday)
		require.NoError(t, os.WriteFile(statePath, []byte(seed), 0o600))

		store := newQuotaStore(statePath, testLogger())
		rl := newRateLimiter("gemini", 1000, 5, store, testLogger())

		// The persisted usage already hit the cap, but it belongs to
		// yesterday: the next acquisition must succeed.
		require.NoError(t, rl.acquire(context.Background()))
		assert.Equal(t, 1, rl.dailyUsage)
		assert.Equal(t, time.Now().Format(dateLayout), rl.lastReset)
	})

	t.Run("rollover mid-run via advancing clock", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 1000, 2)
		ctx := context.Background()

		current := time.Now()
		rl.now = func() time.Time { return current }

		require.NoError(t, rl.acquire(ctx))
		require.NoError(t, rl.acquire(ctx))
		require.ErrorIs(t, rl.acquire(ctx), common.ErrQuotaExceeded)

		current = current.AddDate(0, 0, 1)
		require.NoError(t, rl.acquire(ctx))
		assert.Equal(t, 1, rl.dailyUsage)
	})
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	t.Run("full window suspends until the oldest slot ages out", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 3, 1000)
		ctx := context.Background()

		current := time.Now()
		var slept time.Duration
		rl.now = func() time.Time { return current }
		rl.sleep = func(_ context.Context, d time.Duration) error {
			slept += d
			current = current.Add(d)
			return nil
		}

		for i := 0; i < 3; i++ {
			require.NoError(t, rl.acquire(ctx))
		}
		assert.Zero(t, slept, "filling the window must not suspend")

		require.NoError(t, rl.acquire(ctx))
		// oldest slot was at t0, so the wait is 60s - 0 + 1s buffer
		assert.Equal(t, 61*time.Second, slept)
		assert.Equal(t, 4, rl.dailyUsage, "RPM backoff must not consume daily quota twice")
	})

	t.Run("window prunes entries older than a minute", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 2, 1000)
		ctx := context.Background()

		current := time.Now()
		rl.now = func() time.Time { return current }
		rl.sleep = func(_ context.Context, d time.Duration) error {
			t.Fatal("no suspension expected once old entries aged out")
			return nil
		}

		require.NoError(t, rl.acquire(ctx))
		require.NoError(t, rl.acquire(ctx))

		current = current.Add(2 * time.Minute)
		require.NoError(t, rl.acquire(ctx))
		assert.Len(t, rl.window, 1)
	})

	t.Run("canceled context aborts the backoff", func(t *testing.T) {
		rl, _ := newTestLimiter(t, 1, 1000)

		require.NoError(t, rl.acquire(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := rl.acquire(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRateLimiterPersistence(t *testing.T) {
	t.Run("sibling providers are preserved on save", func(t *testing.T) {
		statePath := filepath.Join(t.TempDir(), "state.json")
		store := newQuotaStore(statePath, testLogger())

		gemini := newRateLimiter("gemini", 100, 100, store, testLogger())
		mistral := newRateLimiter("mistral", 100, 100, store, testLogger())

		ctx := context.Background()
		require.NoError(t, gemini.acquire(ctx))
		require.NoError(t, mistral.acquire(ctx))
		require.NoError(t, gemini.acquire(ctx))

		buf, err := os.ReadFile(statePath)
		require.NoError(t, err)

		var data map[string]quotaRecord
		require.NoError(t, json.Unmarshal(buf, &data))
		assert.Equal(t, 2, data["gemini"].DailyUsage)
		assert.Equal(t, 1, data["mistral"].DailyUsage)
	})

	t.Run("corrupt state file does not block acquisition", func(t *testing.T) {
		statePath := filepath.Join(t.TempDir(), "state.json")
		require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o600))

		store := newQuotaStore(statePath, testLogger())
		rl := newRateLimiter("gemini", 100, 100, store, testLogger())

		require.NoError(t, rl.acquire(context.Background()))

		// The rewritten file must be valid again.
		buf, err := os.ReadFile(statePath)
		require.NoError(t, err)
		var data map[string]quotaRecord
		require.NoError(t, json.Unmarshal(buf, &data))
		assert.Equal(t, 1, data["gemini"].DailyUsage)
	})

	t.Run("concurrent acquisitions never lose a charge", func(t *testing.T) {
		rl, statePath := newTestLimiter(t, 1000, 1000)
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, rl.acquire(ctx))
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, rl.dailyUsage)

		usage, err := ReadQuotaUsage(statePath)
		require.NoError(t, err)
		assert.Equal(t, 20, usage["gemini"].DailyUsage)
	})
}
