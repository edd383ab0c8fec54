// Package storage provides the shared key/value store that coordinates
// independent process instances. Each instance sees its own writes
// synchronously and other instances' writes through an asynchronous change
// notification, which may arrive late relative to the write that caused it.
package storage

// Shared state keys. The timer and blocker snapshots are the only cross-
// instance mutable state; settings are owned by the control surface but
// observed here for whitelist changes.
const (
	KeyTimerState   = "timerState"
	KeyBlockerState = "blockerState"
	KeySettings     = "settings"
)

// ChangeFunc receives a change notification for a subscribed key. remote is
// true when the write originated in another store handle (another instance).
// A removed key is reported with newValue == "".
type ChangeFunc func(key, oldValue, newValue string, remote bool)

// Store is the key/value persistence contract. Get and Set are synchronous
// from the caller's perspective; Subscribe delivers change notifications
// until the returned cancel function is called.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
	Subscribe(key string, fn ChangeFunc) (cancel func())
	Close() error
}
