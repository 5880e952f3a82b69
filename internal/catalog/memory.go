package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps products in process memory in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
	newID    func() string
	now      func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithIDGenerator overrides the id source.
func WithIDGenerator(fn func() string) MemoryOption {
	return func(s *MemoryStore) { s.newID = fn }
}

// WithClock overrides the creation time source.
func WithClock(fn func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = fn }
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{newID: uuid.NewString, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) List(_ context.Context, regionID string) ([]Product, error) {
	return s.filter(func(p Product) bool {
		return regionID == "" || p.RegionID == regionID
	}), nil
}

func (s *MemoryStore) ListActive(_ context.Context, regionID string) ([]Product, error) {
	return s.filter(func(p Product) bool {
		return p.Active() && p.RegionID == regionID
	}), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Product{}, ErrNotFound
	}
	return s.products[idx], nil
}

func (s *MemoryStore) Create(_ context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	if idx := s.indexOf(p.ID); idx >= 0 {
		s.products[idx] = p
		return p, nil
	}
	s.products = append(s.products, p)
	return p, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch Patch) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return Product{}, ErrNotFound
	}
	updated := patch.Apply(s.products[idx])
	s.products[idx] = updated
	return updated, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	s.products = append(s.products[:idx], s.products[idx+1:]...)
	return true, nil
}

func (s *MemoryStore) filter(keep func(Product) bool) []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func (s *MemoryStore) indexOf(id string) int {
	for i, p := range s.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
