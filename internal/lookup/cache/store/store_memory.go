package store

import (
	"context"
	"sync"

	"lookout/pkg/requestcontext"
)

// InMemory keeps entries in a map guarded by a read/write mutex.
// Expired entries are dropped lazily on read or by PurgeExpired.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewInMemory creates an empty in-memory cache store.
func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[string]Entry)}
}

// Get returns the entry for key, or ErrNotFound if it is absent or expired.
func (s *InMemory) Get(ctx context.Context, key string) (Entry, error) {
	now := requestcontext.Now(ctx)
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, ErrNotFound
	}
	if !entry.Live(now) {
		s.mu.Lock()
		if current, ok := s.entries[key]; ok && !current.Live(now) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

// Put stores entry, replacing any previous value for its key.
func (s *InMemory) Put(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Key] = entry
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// PurgeExpired removes every entry that is no longer live and reports how
// many were dropped.
func (s *InMemory) PurgeExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for key, entry := range s.entries {
		if !entry.Live(now) {
			delete(s.entries, key)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of stored entries, live or not.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
