package ratelimit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// CounterStore persists the advisory limiter's local attempt history.
type CounterStore interface {
	Load(key string) ([]time.Time, error)
	Save(key string, stamps []time.Time) error
}

// Advisory is the client-held mirror of the rate limiter. It only exists to
// short-circuit obviously-over-limit calls before a network round trip; the
// server-side limiter is the authority. It therefore fails OPEN whenever its
// store is unreadable or corrupted — only the authoritative check may fail
// closed.
type Advisory struct {
	store  CounterStore
	cap    int
	window time.Duration

	now func() time.Time
}

func NewAdvisory(store CounterStore, capacity int, window time.Duration) *Advisory {
	return &Advisory{store: store, cap: capacity, window: window, now: time.Now}
}

// Allow reports whether the local history leaves headroom for another
// attempt, and records the attempt if so.
func (a *Advisory) Allow(userID uint64, action Action) bool {
	key := keyFor(userID, action)
	now := a.now()

	stamps, err := a.store.Load(key)
	if err != nil {
		return true // unreadable local state: let the server decide
	}

	fresh := stamps[:0]
	for _, t := range stamps {
		if t.After(now.Add(-a.window)) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= a.cap {
		return false
	}

	fresh = append(fresh, now)
	if err := a.store.Save(key, fresh); err != nil {
		return true
	}
	return true
}

// MemoryStore is an in-process CounterStore.
type MemoryStore struct {
	mu     sync.Mutex
	stamps map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stamps: make(map[string][]time.Time)}
}

func (s *MemoryStore) Load(key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Time, len(s.stamps[key]))
	copy(out, s.stamps[key])
	return out, nil
}

func (s *MemoryStore) Save(key string, stamps []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]time.Time, len(stamps))
	copy(cp, stamps)
	s.stamps[key] = cp
	return nil
}

// FileStore keeps the advisory history in a single JSON file, the way a
// client would keep it in local storage.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(key string) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		return nil, err
	}
	return all[key], nil
}

func (s *FileStore) Save(key string, stamps []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.read()
	if err != nil {
		// start over rather than fail the caller's action
		all = make(map[string][]time.Time)
	}
	all[key] = stamps

	data, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal counters: %w", err)
	}
	return os.WriteFile(s.path, data, 0o600)
}

func (s *FileStore) read() (map[string][]time.Time, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string][]time.Time), nil
	}
	if err != nil {
		return nil, err
	}

	var all map[string][]time.Time
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("corrupted counter file: %w", err)
	}
	return all, nil
}
