package blocker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/models"
	"github.com/tomatomonkey/tomatomonkey/internal/settings"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
)

func putTimerState(t *testing.T, store storage.Store, state models.TimerState) {
	t.Helper()
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(storage.KeyTimerState, string(raw)); err != nil {
		t.Fatal(err)
	}
}

func putBlockerState(t *testing.T, store storage.Store, state models.BlockerState) {
	t.Helper()
	raw, err := json.Marshal(state)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(storage.KeyBlockerState, string(raw)); err != nil {
		t.Fatal(err)
	}
}

func TestEarlyCheckEmptyStore(t *testing.T) {
	store := storage.NewHub().Open()

	if EarlyCheck(store, "https://reddit.com/", EarlyCheckOptions{}) {
		t.Error("EarlyCheck() = true with empty store, want false")
	}
}

func TestEarlyCheckRunningSession(t *testing.T) {
	store := storage.NewHub().Open()
	now := time.Now()

	putTimerState(t, store, models.TimerState{
		Status:    models.TimerRunning,
		Timestamp: now.UnixMilli(),
	})
	s := settings.Default()
	s.Whitelist = []string{"google.com"}
	if err := settings.Save(store, s); err != nil {
		t.Fatal(err)
	}

	opts := EarlyCheckOptions{nowFn: func() time.Time { return now }}

	if !EarlyCheck(store, "https://reddit.com/", opts) {
		t.Error("EarlyCheck(reddit.com) = false during running session, want true")
	}
	if EarlyCheck(store, "https://google.com/", opts) {
		t.Error("EarlyCheck(google.com) = true for whitelisted page, want false")
	}
	if EarlyCheck(store, "chrome://settings/", opts) {
		t.Error("EarlyCheck(chrome://) = true for exempt page, want false")
	}
}

func TestEarlyCheckNonRunningStates(t *testing.T) {
	tests := []struct {
		name   string
		status models.TimerStatus
	}{
		{name: "Idle", status: models.TimerIdle},
		{name: "Paused", status: models.TimerPaused},
		{name: "Completed", status: models.TimerCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewHub().Open()
			now := time.Now()
			putTimerState(t, store, models.TimerState{Status: tt.status, Timestamp: now.UnixMilli()})

			opts := EarlyCheckOptions{nowFn: func() time.Time { return now }}
			if EarlyCheck(store, "https://reddit.com/", opts) {
				t.Errorf("EarlyCheck() = true with %s timer, want false", tt.status)
			}
		})
	}
}

func TestEarlyCheckExplicitInactiveBlockerWins(t *testing.T) {
	store := storage.NewHub().Open()
	now := time.Now()

	// A stale running snapshot from a dead instance, but the blocker recorded
	// its own deactivation afterwards.
	putTimerState(t, store, models.TimerState{
		Status:    models.TimerRunning,
		Timestamp: now.Add(-time.Hour).UnixMilli(),
	})
	putBlockerState(t, store, models.BlockerState{IsActive: false, Timestamp: now.UnixMilli()})

	opts := EarlyCheckOptions{nowFn: func() time.Time { return now }}
	if EarlyCheck(store, "https://reddit.com/", opts) {
		t.Error("EarlyCheck() = true despite explicit inactive blocker state, want false")
	}
}

func TestEarlyCheckStaleSnapshotReread(t *testing.T) {
	store := storage.NewHub().Open()
	now := time.Now()

	putTimerState(t, store, models.TimerState{
		Status:    models.TimerRunning,
		Timestamp: now.Add(-time.Minute).UnixMilli(),
	})

	slept := false
	opts := EarlyCheckOptions{
		StalenessThreshold: 5 * time.Second,
		RetryWait:          time.Millisecond,
		nowFn:              func() time.Time { return now },
		sleepFn: func(time.Duration) {
			// Another instance stops the session while this one waits.
			slept = true
			putTimerState(t, store, models.TimerState{
				Status:    models.TimerIdle,
				Timestamp: now.UnixMilli(),
			})
		},
	}

	if EarlyCheck(store, "https://reddit.com/", opts) {
		t.Error("EarlyCheck() = true after re-read found idle state, want false")
	}
	if !slept {
		t.Error("stale snapshot did not trigger the re-read wait")
	}
}

func TestEarlyCheckFreshSnapshotSkipsReread(t *testing.T) {
	store := storage.NewHub().Open()
	now := time.Now()

	putTimerState(t, store, models.TimerState{
		Status:    models.TimerRunning,
		Timestamp: now.UnixMilli(),
	})

	opts := EarlyCheckOptions{
		StalenessThreshold: 5 * time.Second,
		nowFn:              func() time.Time { return now },
		sleepFn:            func(time.Duration) { t.Error("fresh snapshot triggered a re-read wait") },
	}

	if !EarlyCheck(store, "https://reddit.com/", opts) {
		t.Error("EarlyCheck() = false for fresh running snapshot, want true")
	}
}

func TestEarlyCheckCorruptTimerState(t *testing.T) {
	store := storage.NewHub().Open()
	if err := store.Set(storage.KeyTimerState, "{not json"); err != nil {
		t.Fatal(err)
	}

	if EarlyCheck(store, "https://reddit.com/", EarlyCheckOptions{}) {
		t.Error("EarlyCheck() = true with corrupt timer state, want false")
	}
}
