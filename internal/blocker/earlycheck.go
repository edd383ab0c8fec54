package blocker

import (
	"encoding/json"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/domainmatch"
	"github.com/tomatomonkey/tomatomonkey/internal/models"
	"github.com/tomatomonkey/tomatomonkey/internal/settings"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
)

// EarlyCheckOptions tunes the staleness heuristic of the early check.
type EarlyCheckOptions struct {
	// StalenessThreshold is the snapshot age above which one re-read is
	// attempted. This is a best-effort mitigation for a notification that has
	// not propagated yet, not a consistency guarantee.
	StalenessThreshold time.Duration
	// RetryWait is how long to wait before the re-read.
	RetryWait time.Duration

	nowFn   func() time.Time
	sleepFn func(time.Duration)
}

const (
	defaultStalenessThreshold = 5 * time.Second
	defaultRetryWait          = 150 * time.Millisecond
)

// EarlyCheck reads persisted state directly from the store, before any other
// component is constructed, and decides whether the page at rawURL should be
// pre-emptively blocked. The decision is advisory: the Engine re-derives the
// authoritative one once it exists.
//
// An explicitly persisted inactive BlockerState always wins, even when a
// stale TimerState still claims to be running.
func EarlyCheck(store storage.Store, rawURL string, opts EarlyCheckOptions) bool {
	if opts.StalenessThreshold <= 0 {
		opts.StalenessThreshold = defaultStalenessThreshold
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = defaultRetryWait
	}
	if opts.nowFn == nil {
		opts.nowFn = time.Now
	}
	if opts.sleepFn == nil {
		opts.sleepFn = time.Sleep
	}

	if blockerState, ok := readBlockerState(store); ok && !blockerState.IsActive {
		return false
	}

	timerState, ok := readTimerState(store)
	if !ok {
		return false
	}
	if age(timerState.Timestamp, opts.nowFn()) > opts.StalenessThreshold {
		opts.sleepFn(opts.RetryWait)
		if rereadState, reread := readTimerState(store); reread {
			timerState = rereadState
		}
	}
	if timerState.Status != models.TimerRunning {
		return false
	}

	if IsExempt(rawURL) {
		return false
	}
	whitelist := loadWhitelist(store)
	return !domainmatch.IsAllowed(rawURL, whitelist)
}

func readTimerState(store storage.Store) (models.TimerState, bool) {
	raw, ok, err := store.Get(storage.KeyTimerState)
	if err != nil || !ok {
		return models.TimerState{}, false
	}
	var state models.TimerState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return models.TimerState{}, false
	}
	return state, true
}

func readBlockerState(store storage.Store) (models.BlockerState, bool) {
	raw, ok, err := store.Get(storage.KeyBlockerState)
	if err != nil || !ok {
		return models.BlockerState{}, false
	}
	var state models.BlockerState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return models.BlockerState{}, false
	}
	return state, true
}

func loadWhitelist(store storage.Store) domainmatch.Whitelist {
	raw, ok, err := store.Get(storage.KeySettings)
	if err != nil || !ok {
		return nil
	}
	return settings.Parse(raw).WhitelistSet()
}

func age(timestampMillis int64, now time.Time) time.Duration {
	if timestampMillis <= 0 {
		return 0
	}
	return now.Sub(time.UnixMilli(timestampMillis))
}
