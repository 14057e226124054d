package wallet

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryLinkedWallets is an in-memory LinkedWalletSource for tests.
type MemoryLinkedWallets struct {
	mu    sync.RWMutex
	links map[uuid.UUID]string
}

func NewMemoryLinkedWallets() *MemoryLinkedWallets {
	return &MemoryLinkedWallets{links: make(map[uuid.UUID]string)}
}

// Link records an address for a user, overwriting any previous link.
func (s *MemoryLinkedWallets) Link(userID uuid.UUID, address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links[userID] = address
}

func (s *MemoryLinkedWallets) LinkedAddress(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	address, ok := s.links[userID]
	if !ok {
		return "", ErrNoLinkedWallet
	}
	return address, nil
}
