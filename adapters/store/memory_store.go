package store

import (
	"context"
	"sync"
	"time"

	"github.com/halcyon-id/siws/core"
	"github.com/halcyon-id/siws/ports"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the Store interface. A
// single mutex serializes all operations, which gives GetDel the per-key
// atomicity the nonce consumption step relies on.
type MemoryStore struct {
	entries map[string]entry
	mu      sync.Mutex
	now     func() time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

var _ ports.Store = (*MemoryStore)(nil)

// Set writes a key with an expiration time.
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := s.now().Add(ttl)
	s.entries[key] = entry{value: value, expiresAt: expiresAt}

	// Reclaim the entry after it expires. The expiry check below makes this
	// purely a memory concern, not a correctness one.
	go func() {
		time.Sleep(ttl)

		s.mu.Lock()
		defer s.mu.Unlock()

		if stored, exists := s.entries[key]; exists && !stored.expiresAt.After(expiresAt) {
			delete(s.entries, key)
		}
	}()

	return nil
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || s.now().After(e.expiresAt) {
		return "", core.ErrNotFound
	}
	return e.value, nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// GetDel atomically retrieves and removes a key.
func (s *MemoryStore) GetDel(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[key]
	if !exists || s.now().After(e.expiresAt) {
		return "", core.ErrNotFound
	}
	delete(s.entries, key)
	return e.value, nil
}
