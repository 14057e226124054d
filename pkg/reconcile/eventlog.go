package reconcile

import (
	"context"
	"sync"
)

// EventLog records processed webhook event IDs so redeliveries can be
// acknowledged without reapplying them. Seen is checked before processing;
// MarkProcessed is called only after the event was applied successfully, so
// a failed apply stays unmarked and the provider's retry gets a second pass.
// Concurrent first deliveries may both pass the Seen check; that is
// acceptable because mutations are idempotent.
type EventLog interface {
	Seen(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID, eventType string) error
}

// MemoryEventLog is an in-memory EventLog for tests and local development.
type MemoryEventLog struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{seen: make(map[string]struct{})}
}

func (l *MemoryEventLog) Seen(_ context.Context, provider, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[provider+":"+eventID]
	return ok, nil
}

func (l *MemoryEventLog) MarkProcessed(_ context.Context, provider, eventID, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[provider+":"+eventID] = struct{}{}
	return nil
}
