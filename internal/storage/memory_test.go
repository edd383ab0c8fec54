package storage

import (
	"sync"
	"testing"
)

type changeRecorder struct {
	mu      sync.Mutex
	changes []recordedChange
}

type recordedChange struct {
	key    string
	old    string
	value  string
	remote bool
}

func (r *changeRecorder) record(key, old, value string, remote bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, recordedChange{key: key, old: old, value: value, remote: remote})
}

func (r *changeRecorder) all() []recordedChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedChange(nil), r.changes...)
}

func TestMemStoreGetSet(t *testing.T) {
	store := NewHub().Open()

	if _, ok, _ := store.Get("missing"); ok {
		t.Error("Get(missing) ok = true, want false")
	}

	if err := store.Set("k", "v1"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	value, ok, err := store.Get("k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok || value != "v1" {
		t.Errorf("Get(k) = %q, %v, want v1, true", value, ok)
	}

	if err := store.Remove("k"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, ok, _ := store.Get("k"); ok {
		t.Error("Get(k) ok = true after Remove, want false")
	}
}

func TestMemStoreLocalChangeOrigin(t *testing.T) {
	store := NewHub().Open()
	rec := &changeRecorder{}
	store.Subscribe("k", rec.record)

	store.Set("k", "v1")
	store.Set("k", "v2")

	changes := rec.all()
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[0].remote || changes[1].remote {
		t.Error("writer's own subscription saw remote = true, want false")
	}
	if changes[1].old != "v1" || changes[1].value != "v2" {
		t.Errorf("second change = %q -> %q, want v1 -> v2", changes[1].old, changes[1].value)
	}
}

func TestMemStoreRemoteChangeFansOut(t *testing.T) {
	hub := NewHub()
	writer := hub.Open()
	reader := hub.Open()

	rec := &changeRecorder{}
	reader.Subscribe("k", rec.record)

	writer.Set("k", "v1")

	changes := rec.all()
	if len(changes) != 1 {
		t.Fatalf("got %d changes, want 1", len(changes))
	}
	if !changes[0].remote {
		t.Error("peer subscription saw remote = false, want true")
	}

	// The peer sees the written value through its own handle too.
	value, ok, _ := reader.Get("k")
	if !ok || value != "v1" {
		t.Errorf("reader.Get(k) = %q, %v, want v1, true", value, ok)
	}
}

func TestMemStoreSubscribeIsPerKey(t *testing.T) {
	store := NewHub().Open()
	rec := &changeRecorder{}
	store.Subscribe("watched", rec.record)

	store.Set("other", "v")

	if got := len(rec.all()); got != 0 {
		t.Errorf("subscription on other key got %d changes, want 0", got)
	}
}

func TestMemStoreSubscribeCancel(t *testing.T) {
	store := NewHub().Open()
	rec := &changeRecorder{}
	cancel := store.Subscribe("k", rec.record)
	cancel()

	store.Set("k", "v")

	if got := len(rec.all()); got != 0 {
		t.Errorf("cancelled subscription got %d changes, want 0", got)
	}
}

func TestMemStoreClosedHandleSilent(t *testing.T) {
	hub := NewHub()
	writer := hub.Open()
	reader := hub.Open()

	rec := &changeRecorder{}
	reader.Subscribe("k", rec.record)
	reader.Close()

	writer.Set("k", "v")

	if got := len(rec.all()); got != 0 {
		t.Errorf("closed handle got %d changes, want 0", got)
	}
}

func TestMemStorePanickingSubscriberIsolated(t *testing.T) {
	store := NewHub().Open()
	rec := &changeRecorder{}

	store.Subscribe("k", func(string, string, string, bool) { panic("bad subscriber") })
	store.Subscribe("k", rec.record)

	store.Set("k", "v")

	if got := len(rec.all()); got != 1 {
		t.Errorf("subscriber after panicking one got %d changes, want 1", got)
	}
}
