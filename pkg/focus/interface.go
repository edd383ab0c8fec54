// Package focus reports when the user's active window changes. The blocking
// engine re-checks its decision on every change, which compensates for store
// change notifications that were never delivered to a backgrounded instance.
package focus

import "time"

// Event describes one active-window change.
type Event struct {
	WindowID uint32
	Title    string
	At       time.Time
}

// Watcher emits an Event whenever the active window changes.
type Watcher interface {
	Events() <-chan Event
	IsAvailable() bool
	Close() error
}

// NopWatcher is a Watcher that never emits. Used when no display server
// integration is available.
type NopWatcher struct {
	events chan Event
}

func NewNop() *NopWatcher {
	return &NopWatcher{events: make(chan Event)}
}

func (w *NopWatcher) Events() <-chan Event { return w.events }

func (w *NopWatcher) IsAvailable() bool { return false }

func (w *NopWatcher) Close() error {
	close(w.events)
	return nil
}
