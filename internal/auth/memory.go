package auth

import (
	"context"
	"sync"
)

// MemoryStore keeps admins in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	admins []Admin
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FindByEmail implements Store.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if a.Email == email {
			return a, nil
		}
	}
	return Admin{}, ErrAdminNotFound
}

// FindByID implements Store.
func (s *MemoryStore) FindByID(_ context.Context, id string) (Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.admins {
		if a.ID == id {
			return a, nil
		}
	}
	return Admin{}, ErrAdminNotFound
}

// Create implements Store.
func (s *MemoryStore) Create(_ context.Context, admin Admin) (Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.admins {
		if a.Email == admin.Email {
			return Admin{}, ErrEmailTaken
		}
	}
	s.admins = append(s.admins, admin)
	return admin, nil
}

// Len returns the number of stored admins.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins)
}
