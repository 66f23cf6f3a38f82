package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mixwave/quotagate/domain/usage"
	"github.com/mixwave/quotagate/ports"
)

// UsageEventStore is an in-memory implementation of ports.UsageEventStore.
type UsageEventStore struct {
	mu     sync.RWMutex
	events map[string]usage.Event
}

// NewUsageEventStore creates a new in-memory usage event store.
func NewUsageEventStore() *UsageEventStore {
	return &UsageEventStore{events: make(map[string]usage.Event)}
}

// Insert stores a new usage event.
func (s *UsageEventStore) Insert(ctx context.Context, e usage.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[e.ID]; ok {
		return ports.ErrDuplicate
	}
	s.events[e.ID] = e
	return nil
}

// Delete removes an event by ID.
func (s *UsageEventStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ports.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

// ListByAccount returns recent events for an account, newest first.
func (s *UsageEventStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]usage.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	s.mu.RLock()
	var events []usage.Event
	for _, e := range s.events {
		if e.AccountID == accountID {
			events = append(events, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID > events[j].ID
		}
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})

	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Len returns the number of stored events (for testing).
func (s *UsageEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Ensure interface compliance.
var _ ports.UsageEventStore = (*UsageEventStore)(nil)
