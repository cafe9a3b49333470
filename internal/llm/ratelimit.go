package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tickerpulse/tickerpulse/internal/common"
)

// dateLayout is the calendar-date format used by the persisted daily window.
const dateLayout = "2006-01-02"

// rateLimiter enforces both quota dimensions for a single provider: a soft
// sliding requests-per-minute window held in memory and a hard
// requests-per-day counter persisted through the quota store so daily usage
// survives process restarts.
//
// All reads and writes of the window, the daily counter, and the store go
// through one mutex per limiter instance. The backoff sleep for a full
// minute window is taken with the mutex released, so other callers queued
// on the same provider are only ever blocked for the bookkeeping itself.
type rateLimiter struct {
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	store      *quotaStore
	logger     *slog.Logger
	provider   string
	lastReset  string
	window     []time.Time
	dailyUsage int
	rpm        int
	rpd        int
	mu         sync.Mutex
}

// newRateLimiter creates a limiter for one provider, loading any persisted
// daily usage from the store. A rollover to a new day is applied immediately
// on load, before the first quota check.
func newRateLimiter(provider string, rpm, rpd int, store *quotaStore, logger *slog.Logger) *rateLimiter {
	rl := &rateLimiter{
		provider:  provider,
		rpm:       rpm,
		rpd:       rpd,
		store:     store,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
		lastReset: time.Now().Format(dateLayout),
	}

	if rec, ok := store.load(provider); ok {
		rl.dailyUsage = rec.DailyUsage
		if rec.LastResetDate != "" {
			rl.lastReset = rec.LastResetDate
		}
	}

	rl.mu.Lock()
	rl.resetDailyLocked()
	rl.mu.Unlock()

	return rl
}

// acquire blocks until a request slot is available or fails hard.
//
// It returns common.ErrQuotaExceeded once the daily cap is reached; that is
// fatal for the rest of the calendar day and callers must stop scheduling
// rather than retry. A full per-minute window only suspends the caller until
// the oldest timestamp ages out. Once acquire returns nil the request is
// charged: a caller that abandons the call afterwards does not get the
// quota back.
func (rl *rateLimiter) acquire(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.resetDailyLocked()

		if rl.dailyUsage >= rl.rpd {
			rl.mu.Unlock()
			return fmt.Errorf("%w: provider %s reached %d requests today", common.ErrQuotaExceeded, rl.provider, rl.rpd)
		}

		now := rl.now()
		rl.pruneLocked(now)

		if len(rl.window) < rl.rpm {
			rl.window = append(rl.window, now)
			rl.dailyUsage++
			rl.persistLocked()
			rl.logger.Debug("request slot acquired",
				"provider", rl.provider,
				"daily_usage", rl.dailyUsage,
				"rpd", rl.rpd,
				"window", len(rl.window),
				"rpm", rl.rpm)
			rl.mu.Unlock()
			return nil
		}

		// Window is full: wait until the oldest entry ages out, plus a
		// one-second buffer against clock granularity.
		wait := time.Minute - now.Sub(rl.window[0]) + time.Second
		if wait < 0 {
			wait = 0
		}
		rl.mu.Unlock()

		rl.logger.Warn("per-minute rate cap reached, backing off",
			"provider", rl.provider,
			"rpm", rl.rpm,
			"wait", wait)

		if err := rl.sleep(ctx, wait); err != nil {
			return err
		}
		// Loop and re-check: the clock may have advanced further than
		// requested, or another caller may have filled the freed slot.
	}
}

// resetDailyLocked zeroes the daily counter when the calendar date has
// changed since the last reset. Callers must hold mu.
func (rl *rateLimiter) resetDailyLocked() {
	today := rl.now().Format(dateLayout)
	if today == rl.lastReset {
		return
	}

	rl.logger.Info("new day detected, resetting daily quota",
		"provider", rl.provider,
		"date", today)
	rl.dailyUsage = 0
	rl.lastReset = today
	rl.persistLocked()
}

// pruneLocked drops window timestamps older than the trailing 60 seconds.
// Callers must hold mu.
func (rl *rateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := rl.window[:0]
	for _, t := range rl.window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rl.window = kept
}

// persistLocked writes the daily counter to the quota store. A failed write
// is logged but does not fail the acquisition: the in-memory counter is
// authoritative for this process, and losing a persisted increment errs on
// the side of spending quota we already charged.
func (rl *rateLimiter) persistLocked() {
	if err := rl.store.save(rl.provider, quotaRecord{
		DailyUsage:    rl.dailyUsage,
		LastResetDate: rl.lastReset,
	}); err != nil {
		rl.logger.Error("failed to persist quota state",
			"provider", rl.provider,
			"error", err)
	}
}

// sleepContext sleeps for d or until the context is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
