package models

// TimerStatus is the lifecycle phase of a focus session.
type TimerStatus string

const (
	TimerIdle      TimerStatus = "idle"
	TimerRunning   TimerStatus = "running"
	TimerPaused    TimerStatus = "paused"
	TimerCompleted TimerStatus = "completed"
)

// TimerState is the authoritative focus-session record shared between
// instances through the key/value store. The idle state is written, never
// deleted, so every reader sees a full snapshot and a change notification.
type TimerState struct {
	Status           TimerStatus `json:"status"`
	TaskID           string      `json:"taskId,omitempty"`
	TaskTitle        string      `json:"taskTitle,omitempty"`
	StartTime        int64       `json:"startTime,omitempty"` // epoch millis, wall-clock anchor
	RemainingSeconds int64       `json:"remainingSeconds"`
	TotalSeconds     int64       `json:"totalSeconds"`
	Timestamp        int64       `json:"timestamp"` // epoch millis of last persist
}

// IdleTimerState returns the canonical idle snapshot stamped at nowMillis.
func IdleTimerState(nowMillis int64) TimerState {
	return TimerState{
		Status:    TimerIdle,
		Timestamp: nowMillis,
	}
}

// BlockerState is the persisted per-instance activation flag. It is derived
// from, but not identical to, the timer being in the running state: an
// explicit deactivation wins over a stale running timer snapshot.
type BlockerState struct {
	IsActive  bool  `json:"isActive"`
	Timestamp int64 `json:"timestamp"` // epoch millis of last persist
}
