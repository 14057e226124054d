package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a mutex-serialized in-memory Store with the same merge
// semantics as the Postgres store. Used in tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*Subscription
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[uuid.UUID]*Subscription)}
}

func (s *MemoryStore) Get(_ context.Context, userID uuid.UUID) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.rows[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *MemoryStore) Reconcile(_ context.Context, userID uuid.UUID, m Mutation) (*Subscription, error) {
	if m.IsZero() {
		return nil, ErrEmptyMutation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged, write := m.apply(s.rows[userID], userID, time.Now().UTC())
	if write {
		s.rows[userID] = merged
	}
	cp := *merged
	return &cp, nil
}

// Len reports how many subscription rows exist. Test helper for the
// one-row-per-user property.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
