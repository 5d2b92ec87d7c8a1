package memory

import (
	"context"
	"sync"

	audit "lookout/pkg/platform/audit"
)

// InMemoryStore keeps audit events per user. Anonymous events are kept under "".
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
	order  []audit.Event
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]audit.Event)
	s.order = nil
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.UserID] = append(s.events[event.UserID], event)
	s.order = append(s.order, event)
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[userID]...), nil
}

// ListRecent returns the most recent limit events in append order.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.order) - limit
	if start < 0 {
		start = 0
	}
	return append([]audit.Event{}, s.order[start:]...), nil
}
