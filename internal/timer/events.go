package timer

import "time"

// EventType identifies a timer lifecycle event.
type EventType string

const (
	EventStarted   EventType = "timerStarted"
	EventTick      EventType = "timerTick"
	EventPaused    EventType = "timerPaused"
	EventResumed   EventType = "timerResumed"
	EventModified  EventType = "timerModified"
	EventCompleted EventType = "timerCompleted"
	EventStopped   EventType = "timerStopped"
)

// Event is delivered to observers on every timer transition and tick.
// Fields beyond Type are populated per event: OldDuration/NewDuration only on
// EventModified, Progress only on EventTick.
type Event struct {
	Type             EventType
	TaskID           string
	TaskTitle        string
	RemainingSeconds int64
	TotalSeconds     int64
	Progress         float64
	OldDuration      int64
	NewDuration      int64
	At               time.Time
}

// EventFunc is an observer callback. A panic inside one observer is isolated
// and does not prevent delivery to the rest.
type EventFunc func(Event)
