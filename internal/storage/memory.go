package storage

import "sync"

// Hub is a process-local store backend shared by several MemStore handles.
// Writes through one handle fan out synchronously to every other handle with
// remote=true, which makes multi-instance behavior testable without a
// database or a real notification delay.
type Hub struct {
	mu      sync.Mutex
	entries map[string]string
	stores  []*MemStore
}

func NewHub() *Hub {
	return &Hub{entries: make(map[string]string)}
}

// Open returns a new store handle on the hub. Each handle stands in for one
// independent instance.
func (h *Hub) Open() *MemStore {
	s := &MemStore{hub: h}
	h.mu.Lock()
	h.stores = append(h.stores, s)
	h.mu.Unlock()
	return s
}

// MemStore is an in-memory Store handle opened from a Hub.
type MemStore struct {
	hub *Hub

	mu      sync.Mutex
	subs    []subscription
	nextSub int
	closed  bool
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	value, ok := s.hub.entries[key]
	return value, ok, nil
}

func (s *MemStore) Set(key, value string) error {
	s.hub.mu.Lock()
	old := s.hub.entries[key]
	s.hub.entries[key] = value
	stores := append([]*MemStore(nil), s.hub.stores...)
	s.hub.mu.Unlock()

	for _, peer := range stores {
		peer.deliver(key, old, value, peer != s)
	}
	return nil
}

func (s *MemStore) Remove(key string) error {
	s.hub.mu.Lock()
	old := s.hub.entries[key]
	delete(s.hub.entries, key)
	stores := append([]*MemStore(nil), s.hub.stores...)
	s.hub.mu.Unlock()

	for _, peer := range stores {
		peer.deliver(key, old, "", peer != s)
	}
	return nil
}

func (s *MemStore) Subscribe(key string, fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, key: key, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.subs = nil
	s.mu.Unlock()
	return nil
}

func (s *MemStore) deliver(key, old, value string, remote bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var fns []ChangeFunc
	for _, sub := range s.subs {
		if sub.key == key {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.Unlock()

	notify(fns, key, old, value, remote)
}
