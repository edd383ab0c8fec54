// Package timer implements the focus-session state machine. The authoritative
// state lives in the shared store; this instance drives the countdown and
// persists a full snapshot on every transition and tick so that other
// instances can reconcile from the latest snapshot they have seen.
package timer

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/database"
	"github.com/tomatomonkey/tomatomonkey/internal/models"
	"github.com/tomatomonkey/tomatomonkey/internal/notify"
	"github.com/tomatomonkey/tomatomonkey/internal/storage"
)

// Config contains runtime options for the Timer.
type Config struct {
	TickInterval time.Duration // countdown tick period
	GraceDelay   time.Duration // completed -> idle auto-reset delay
	MaxSeconds   int64         // upper bound for session durations
}

const (
	defaultTickInterval = time.Second
	defaultGraceDelay   = 3 * time.Second
	defaultMaxSeconds   = 7200
)

type observer struct {
	id int
	fn EventFunc
}

// Timer owns the countdown state machine. Invalid transitions are a normal
// outcome reported by a boolean result, not an error.
type Timer struct {
	mu       sync.Mutex
	store    storage.Store
	repo     *database.Repository // optional session history, may be nil
	notifier notify.Notifier
	config   Config

	state        models.TimerState
	sessionStart time.Time
	ticking      bool
	stopCh       chan struct{}
	resetTimer   *time.Timer

	observers []observer
	nextID    int

	lastCompletedID    string
	lastCompletedTitle string

	nowFn func() time.Time
}

// New creates a Timer and restores it from the persisted snapshot: a running
// session resumes ticking (or completes immediately if it ran out while no
// instance was alive), a paused one is restored frozen, idle or absent state
// needs no action.
func New(store storage.Store, repo *database.Repository, notifier notify.Notifier, config Config) *Timer {
	if config.TickInterval <= 0 {
		config.TickInterval = defaultTickInterval
	}
	if config.GraceDelay <= 0 {
		config.GraceDelay = defaultGraceDelay
	}
	if config.MaxSeconds <= 0 {
		config.MaxSeconds = defaultMaxSeconds
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	t := &Timer{
		store:    store,
		repo:     repo,
		notifier: notifier,
		config:   config,
		nowFn:    time.Now,
	}
	t.restore()
	return t
}

// Subscribe registers an observer for every emitted event. Observers are
// invoked in registration order, synchronously within one emit pass. The
// returned cancel function removes the observer.
func (t *Timer) Subscribe(fn EventFunc) (cancel func()) {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.observers = append(t.observers, observer{id: id, fn: fn})
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, ob := range t.observers {
			if ob.id == id {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns the current state. For a running session the remaining
// time is recomputed from the wall-clock anchor, so the value is fresh even
// between ticks.
func (t *Timer) Snapshot() models.TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.state
	if state.Status == models.TimerRunning {
		state.RemainingSeconds = t.remainingLocked(t.nowFn())
	}
	return state
}

// LastCompleted returns the task of the most recently completed session.
func (t *Timer) LastCompleted() (taskID, taskTitle string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastCompletedID, t.lastCompletedTitle
}

// Start begins a new session. Rejected when a session is already running or
// the duration is out of range.
func (t *Timer) Start(taskID, taskTitle string, totalSeconds int64) bool {
	if totalSeconds < 1 || totalSeconds > t.config.MaxSeconds {
		log.Printf("timer: rejected start with duration %ds", totalSeconds)
		return false
	}

	t.mu.Lock()
	if t.state.Status == models.TimerRunning {
		t.mu.Unlock()
		return false
	}
	t.cancelResetLocked()

	now := t.nowFn()
	t.state = models.TimerState{
		Status:           models.TimerRunning,
		TaskID:           taskID,
		TaskTitle:        taskTitle,
		StartTime:        now.UnixMilli(),
		RemainingSeconds: totalSeconds,
		TotalSeconds:     totalSeconds,
	}
	t.sessionStart = now
	t.persistLocked(now)
	t.startTickLocked()
	event := Event{
		Type:             EventStarted,
		TaskID:           taskID,
		TaskTitle:        taskTitle,
		RemainingSeconds: totalSeconds,
		TotalSeconds:     totalSeconds,
		At:               now,
	}
	t.mu.Unlock()

	t.emit(event)
	return true
}

// Pause freezes a running session. No further tick fires once Pause returns.
func (t *Timer) Pause() bool {
	t.mu.Lock()
	if t.state.Status != models.TimerRunning {
		t.mu.Unlock()
		return false
	}

	now := t.nowFn()
	t.state.RemainingSeconds = t.remainingLocked(now)
	t.stopTickLocked()
	t.state.Status = models.TimerPaused
	t.persistLocked(now)
	event := Event{
		Type:             EventPaused,
		TaskID:           t.state.TaskID,
		TaskTitle:        t.state.TaskTitle,
		RemainingSeconds: t.state.RemainingSeconds,
		TotalSeconds:     t.state.TotalSeconds,
		At:               now,
	}
	t.mu.Unlock()

	t.emit(event)
	return true
}

// Resume unfreezes a paused session, re-anchoring the start time so that the
// time spent paused does not count as elapsed.
func (t *Timer) Resume() bool {
	t.mu.Lock()
	if t.state.Status != models.TimerPaused {
		t.mu.Unlock()
		return false
	}

	now := t.nowFn()
	elapsed := t.state.TotalSeconds - t.state.RemainingSeconds
	t.state.StartTime = now.UnixMilli() - elapsed*1000
	t.state.Status = models.TimerRunning
	t.persistLocked(now)
	t.startTickLocked()
	event := Event{
		Type:             EventResumed,
		TaskID:           t.state.TaskID,
		TaskTitle:        t.state.TaskTitle,
		RemainingSeconds: t.state.RemainingSeconds,
		TotalSeconds:     t.state.TotalSeconds,
		At:               now,
	}
	t.mu.Unlock()

	t.emit(event)
	return true
}

// Stop forces any non-idle state back to idle and persists the idle snapshot
// (persisting, not deleting, is what notifies other instances).
func (t *Timer) Stop() bool {
	return t.stop(true)
}

// StopQuiet stops without notifying observers. Used when the stop is itself a
// reaction to an event and re-broadcasting would loop.
func (t *Timer) StopQuiet() bool {
	return t.stop(false)
}

func (t *Timer) stop(notifyObservers bool) bool {
	t.mu.Lock()
	if t.state.Status == models.TimerIdle {
		t.mu.Unlock()
		return false
	}

	now := t.nowFn()
	var session *models.SessionEvent
	if t.state.Status == models.TimerRunning || t.state.Status == models.TimerPaused {
		if t.state.Status == models.TimerRunning {
			t.state.RemainingSeconds = t.remainingLocked(now)
		}
		session = t.sessionRecordLocked(now, "stopped")
	}
	t.stopTickLocked()
	t.cancelResetLocked()
	t.state = models.IdleTimerState(now.UnixMilli())
	t.persistLocked(now)
	t.mu.Unlock()

	t.recordSession(session)
	if notifyObservers {
		t.emit(Event{Type: EventStopped, At: now})
	}
	return true
}

// Modify changes the duration of the current session while preserving the
// elapsed time. Valid only while running or paused, with 1..MaxSeconds.
func (t *Timer) Modify(newDuration int64) bool {
	t.mu.Lock()
	status := t.state.Status
	if status != models.TimerRunning && status != models.TimerPaused {
		t.mu.Unlock()
		return false
	}
	if newDuration < 1 || newDuration > t.config.MaxSeconds {
		t.mu.Unlock()
		log.Printf("timer: rejected modify with duration %ds", newDuration)
		return false
	}

	now := t.nowFn()
	oldDuration := t.state.TotalSeconds
	elapsed := oldDuration - t.state.RemainingSeconds
	if status == models.TimerRunning {
		elapsed = oldDuration - t.remainingLocked(now)
	}
	remaining := newDuration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	t.state.TotalSeconds = newDuration
	t.state.RemainingSeconds = remaining
	t.persistLocked(now)
	event := Event{
		Type:             EventModified,
		TaskID:           t.state.TaskID,
		TaskTitle:        t.state.TaskTitle,
		OldDuration:      oldDuration,
		NewDuration:      newDuration,
		RemainingSeconds: remaining,
		TotalSeconds:     newDuration,
		At:               now,
	}
	t.mu.Unlock()

	t.emit(event)
	return true
}

// Close halts the tick and any pending auto-reset without a state transition.
// The persisted snapshot is left as-is for the next instance to restore.
func (t *Timer) Close() {
	t.mu.Lock()
	t.stopTickLocked()
	t.cancelResetLocked()
	t.mu.Unlock()
}

func (t *Timer) restore() {
	raw, ok, err := t.store.Get(storage.KeyTimerState)
	if err != nil {
		log.Printf("timer: failed to read persisted state: %v", err)
	}

	t.mu.Lock()
	now := t.nowFn()
	t.state = models.IdleTimerState(now.UnixMilli())
	if err != nil || !ok {
		t.mu.Unlock()
		return
	}

	var persisted models.TimerState
	if err := json.Unmarshal([]byte(raw), &persisted); err != nil {
		log.Printf("timer: corrupt persisted state, falling back to idle: %v", err)
		t.mu.Unlock()
		return
	}

	switch persisted.Status {
	case models.TimerRunning:
		t.state = persisted
		t.sessionStart = time.UnixMilli(persisted.StartTime)
		remaining := t.remainingLocked(now)
		t.state.RemainingSeconds = remaining
		if remaining > 0 {
			t.persistLocked(now)
			t.startTickLocked()
			t.mu.Unlock()
			return
		}
		// The session finished while no instance was running.
		event, session := t.completeLocked(now)
		t.mu.Unlock()
		t.finishCompletion(event, session)
		return

	case models.TimerPaused:
		t.state = persisted
		t.sessionStart = time.UnixMilli(persisted.StartTime)

	case models.TimerCompleted:
		t.state = persisted
		t.resetTimer = time.AfterFunc(t.config.GraceDelay, t.resetToIdle)
	}
	t.mu.Unlock()
}

// tick recomputes the remaining time from the wall-clock anchor rather than
// decrementing a counter, so missed ticks cannot skew the countdown.
func (t *Timer) tick(now time.Time) {
	t.mu.Lock()
	if !t.ticking || t.state.Status != models.TimerRunning {
		t.mu.Unlock()
		return
	}

	remaining := t.remainingLocked(now)
	t.state.RemainingSeconds = remaining
	if remaining <= 0 {
		t.state.RemainingSeconds = 0
		event, session := t.completeLocked(now)
		t.mu.Unlock()
		t.finishCompletion(event, session)
		return
	}

	t.persistLocked(now)
	total := t.state.TotalSeconds
	event := Event{
		Type:             EventTick,
		TaskID:           t.state.TaskID,
		TaskTitle:        t.state.TaskTitle,
		RemainingSeconds: remaining,
		TotalSeconds:     total,
		Progress:         float64(total-remaining) / float64(total),
		At:               now,
	}
	t.mu.Unlock()

	t.emit(event)
}

func (t *Timer) completeLocked(now time.Time) (Event, *models.SessionEvent) {
	t.stopTickLocked()
	t.state.Status = models.TimerCompleted
	t.lastCompletedID = t.state.TaskID
	t.lastCompletedTitle = t.state.TaskTitle
	session := t.sessionRecordLocked(now, "completed")
	t.persistLocked(now)
	t.cancelResetLocked()
	t.resetTimer = time.AfterFunc(t.config.GraceDelay, t.resetToIdle)

	return Event{
		Type:         EventCompleted,
		TaskID:       t.state.TaskID,
		TaskTitle:    t.state.TaskTitle,
		TotalSeconds: t.state.TotalSeconds,
		At:           now,
	}, session
}

func (t *Timer) finishCompletion(event Event, session *models.SessionEvent) {
	t.recordSession(session)
	t.emit(event)

	title := "Focus session complete"
	body := "Time for a break."
	if event.TaskTitle != "" {
		body = fmt.Sprintf("Finished working on %q.", event.TaskTitle)
	}
	if err := t.notifier.Notify(title, body); err != nil {
		log.Printf("timer: notification failed: %v", err)
	}
}

func (t *Timer) resetToIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Status != models.TimerCompleted {
		return
	}
	now := t.nowFn()
	t.state = models.IdleTimerState(now.UnixMilli())
	t.persistLocked(now)
}

func (t *Timer) sessionRecordLocked(now time.Time, outcome string) *models.SessionEvent {
	if t.repo == nil {
		return nil
	}
	focused := t.state.TotalSeconds - t.state.RemainingSeconds
	if outcome == "completed" {
		focused = t.state.TotalSeconds
	}
	started := t.sessionStart
	if started.IsZero() {
		started = time.UnixMilli(t.state.StartTime)
	}
	return &models.SessionEvent{
		TaskID:         t.state.TaskID,
		TaskTitle:      t.state.TaskTitle,
		Outcome:        outcome,
		PlannedSeconds: t.state.TotalSeconds,
		FocusedSeconds: focused,
		StartedAt:      started,
		EndedAt:        now,
	}
}

func (t *Timer) recordSession(session *models.SessionEvent) {
	if session == nil {
		return
	}
	if err := t.repo.CreateSessionEvent(session); err != nil {
		log.Printf("timer: failed to record session: %v", err)
	}
}

func (t *Timer) remainingLocked(now time.Time) int64 {
	elapsed := (now.UnixMilli() - t.state.StartTime) / 1000
	remaining := t.state.TotalSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (t *Timer) persistLocked(now time.Time) {
	t.state.Timestamp = now.UnixMilli()
	raw, err := json.Marshal(t.state)
	if err != nil {
		log.Printf("timer: failed to marshal state: %v", err)
		return
	}
	if err := t.store.Set(storage.KeyTimerState, string(raw)); err != nil {
		log.Printf("timer: failed to persist state: %v", err)
	}
}

func (t *Timer) startTickLocked() {
	if t.ticking {
		return
	}
	t.ticking = true
	t.stopCh = make(chan struct{})
	go t.run(t.stopCh)
}

// stopTickLocked synchronously prevents further ticks: the goroutine exits on
// the closed channel, and a tick already in flight no-ops on the guard at the
// top of tick.
func (t *Timer) stopTickLocked() {
	if !t.ticking {
		return
	}
	t.ticking = false
	close(t.stopCh)
}

func (t *Timer) cancelResetLocked() {
	if t.resetTimer != nil {
		t.resetTimer.Stop()
		t.resetTimer = nil
	}
}

func (t *Timer) run(stopCh chan struct{}) {
	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			t.tick(t.nowFn())
		}
	}
}

func (t *Timer) emit(event Event) {
	t.mu.Lock()
	observers := append([]observer(nil), t.observers...)
	t.mu.Unlock()

	for _, ob := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("timer: observer panicked on %s: %v", event.Type, r)
				}
			}()
			ob.fn(event)
		}()
	}
}
