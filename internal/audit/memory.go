package audit

import (
	"context"
	"sync"
)

const defaultMemoryCapacity = 1000

// MemoryStore keeps the most recent entries in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
}

// NewMemoryStore constructs a store that retains at most capacity entries.
// A non-positive capacity selects the default.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) Insert(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	if over := len(s.entries) - s.capacity; over > 0 {
		s.entries = append([]Entry(nil), s.entries[over:]...)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, limit)
	for i := len(s.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}
