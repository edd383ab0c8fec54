package storage

import (
	"log"
	"sync"
	"time"

	"github.com/tomatomonkey/tomatomonkey/internal/database"
)

const defaultWatchInterval = time.Second

type subscription struct {
	id  int
	key string
	fn  ChangeFunc
}

// SQLiteStore is a Store backed by the shared SQLite database. Remote writes
// are detected by a watcher goroutine comparing the monotonic per-key version
// against the last version this handle wrote or observed; version comparison
// avoids trusting wall clocks across processes.
type SQLiteStore struct {
	repo *database.Repository

	mu      sync.Mutex
	seen    map[string]int64  // last version observed per key
	values  map[string]string // last value observed per key
	subs    []subscription
	nextSub int

	watchInterval time.Duration
	stopCh        chan struct{}
	done          sync.WaitGroup
	closed        bool
}

// NewSQLiteStore opens a store handle over the repository and starts the
// change watcher. Rows already present are primed as seen so that opening a
// handle never reports pre-existing state as a change.
func NewSQLiteStore(repo *database.Repository, watchInterval time.Duration) (*SQLiteStore, error) {
	if watchInterval <= 0 {
		watchInterval = defaultWatchInterval
	}

	s := &SQLiteStore{
		repo:          repo,
		seen:          make(map[string]int64),
		values:        make(map[string]string),
		watchInterval: watchInterval,
		stopCh:        make(chan struct{}),
	}

	entries, err := repo.GetEntries()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		s.seen[entry.Key] = entry.Version
		s.values[entry.Key] = entry.Value
	}

	s.done.Add(1)
	go s.watch()
	return s, nil
}

func (s *SQLiteStore) Get(key string) (string, bool, error) {
	entry, err := s.repo.GetEntry(key)
	if err != nil {
		return "", false, err
	}
	if entry == nil {
		return "", false, nil
	}

	s.mu.Lock()
	if entry.Version > s.seen[key] {
		s.seen[key] = entry.Version
		s.values[key] = entry.Value
	}
	s.mu.Unlock()

	return entry.Value, true, nil
}

func (s *SQLiteStore) Set(key, value string) error {
	version, err := s.repo.PutEntry(key, value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	old := s.values[key]
	s.seen[key] = version
	s.values[key] = value
	fns := s.subscribersLocked(key)
	s.mu.Unlock()

	notify(fns, key, old, value, false)
	return nil
}

func (s *SQLiteStore) Remove(key string) error {
	if err := s.repo.DeleteEntry(key); err != nil {
		return err
	}

	s.mu.Lock()
	old := s.values[key]
	delete(s.seen, key)
	delete(s.values, key)
	fns := s.subscribersLocked(key)
	s.mu.Unlock()

	notify(fns, key, old, "", false)
	return nil
}

func (s *SQLiteStore) Subscribe(key string, fn ChangeFunc) (cancel func()) {
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

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopCh)
	s.mu.Unlock()

	s.done.Wait()
	return nil
}

func (s *SQLiteStore) watch() {
	defer s.done.Done()

	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkOnce()
		}
	}
}

// checkOnce reads the whole entry table and reports every key whose version
// advanced past what this handle has seen. Such changes are by construction
// remote: local writes record their version before releasing the lock.
func (s *SQLiteStore) checkOnce() {
	entries, err := s.repo.GetEntries()
	if err != nil {
		log.Printf("storage: change watcher read failed: %v", err)
		return
	}

	type change struct {
		key, old, value string
		fns             []ChangeFunc
	}
	var changes []change

	s.mu.Lock()
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Key] = true
		if entry.Version <= s.seen[entry.Key] {
			continue
		}
		old := s.values[entry.Key]
		s.seen[entry.Key] = entry.Version
		s.values[entry.Key] = entry.Value
		changes = append(changes, change{
			key:   entry.Key,
			old:   old,
			value: entry.Value,
			fns:   s.subscribersLocked(entry.Key),
		})
	}
	for key, old := range s.values {
		if present[key] {
			continue
		}
		delete(s.seen, key)
		delete(s.values, key)
		changes = append(changes, change{key: key, old: old, fns: s.subscribersLocked(key)})
	}
	s.mu.Unlock()

	for _, c := range changes {
		notify(c.fns, c.key, c.old, c.value, true)
	}
}

func (s *SQLiteStore) subscribersLocked(key string) []ChangeFunc {
	var fns []ChangeFunc
	for _, sub := range s.subs {
		if sub.key == key {
			fns = append(fns, sub.fn)
		}
	}
	return fns
}

// notify delivers a change to each subscriber, isolating panics so one broken
// callback cannot starve the rest.
func notify(fns []ChangeFunc, key, old, value string, remote bool) {
	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("storage: subscriber for %q panicked: %v", key, r)
				}
			}()
			fn(key, old, value, remote)
		}()
	}
}
