package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/orderflow/internal/orders/ports"
)

// Store retains payment confirmation responses for replaying duplicate requests.
type Store struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]ports.StoredResponse
}

// NewStore creates a new in-memory idempotency store. A zero ttl keeps entries forever.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]ports.StoredResponse),
	}
}

// Get returns the stored response for a given key if present and not expired.
func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.items[key]
	if !ok || s.expired(value) {
		return nil, nil
	}
	value.Body = append([]byte(nil), value.Body...)
	return &value, nil
}

// Reserve claims key for orderID unless a live entry already exists.
func (s *Store) Reserve(_ context.Context, key, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok && !s.expired(existing) {
		return false, nil
	}
	s.items[key] = ports.StoredResponse{OrderID: orderID, CreatedAt: s.now().UTC()}
	return true, nil
}

// Save stores the response unless a completed live entry already exists for the key.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok && !s.expired(existing) && !existing.Pending() {
		return nil
	}
	if response.CreatedAt.IsZero() {
		response.CreatedAt = s.now().UTC()
	}
	response.Body = append([]byte(nil), response.Body...)
	s.items[key] = response
	return nil
}

// Release removes a pending reservation. Completed entries are kept.
func (s *Store) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.items[key]; ok && existing.Pending() {
		delete(s.items, key)
	}
	return nil
}

// Purge drops expired entries and reports how many were removed.
func (s *Store) Purge() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, value := range s.items {
		if s.expired(value) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

func (s *Store) expired(value ports.StoredResponse) bool {
	return s.ttl > 0 && s.now().Sub(value.CreatedAt) > s.ttl
}
