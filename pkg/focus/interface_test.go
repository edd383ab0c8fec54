package focus

import (
	"testing"
	"time"
)

type MockWatcher struct {
	events      chan Event
	isAvailable bool
	closeError  error
}

func (m *MockWatcher) Events() <-chan Event {
	return m.events
}

func (m *MockWatcher) IsAvailable() bool {
	return m.isAvailable
}

func (m *MockWatcher) Close() error {
	return m.closeError
}

func TestMockWatcher(t *testing.T) {
	var _ Watcher = (*MockWatcher)(nil)

	mock := &MockWatcher{
		events:      make(chan Event, 1),
		isAvailable: true,
	}

	mock.events <- Event{
		WindowID: 42,
		Title:    "Test Window",
		At:       time.Now(),
	}

	event := <-mock.Events()
	if event.WindowID != 42 {
		t.Errorf("WindowID = %d, want 42", event.WindowID)
	}
	if event.Title != "Test Window" {
		t.Errorf("Title = %s, want Test Window", event.Title)
	}

	if !mock.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}

	if err := mock.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestNopWatcher(t *testing.T) {
	var _ Watcher = (*NopWatcher)(nil)

	nop := NewNop()

	if nop.IsAvailable() {
		t.Error("IsAvailable() = true, want false")
	}

	select {
	case event := <-nop.Events():
		t.Errorf("NopWatcher emitted %+v, want nothing", event)
	case <-time.After(10 * time.Millisecond):
	}

	if err := nop.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}
