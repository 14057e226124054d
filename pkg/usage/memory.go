package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/plan"
)

type windowKey struct {
	userID  uuid.UUID
	feature plan.Feature
	period  time.Time
}

// MemoryLedger is a mutex-serialized in-memory ledger. It mirrors the
// Postgres ledger's semantics exactly, including the atomicity of
// TryConsume, and is used in tests and ledger-less deployments.
type MemoryLedger struct {
	mu     sync.Mutex
	counts map[windowKey]int64
}

// NewMemoryLedger returns an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{counts: make(map[windowKey]int64)}
}

func (l *MemoryLedger) Peek(_ context.Context, userID uuid.UUID, feature plan.Feature, now time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[windowKey{userID, feature, PeriodStart(now)}], nil
}

func (l *MemoryLedger) TryConsume(_ context.Context, userID uuid.UUID, feature plan.Feature, limit int64, now time.Time) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := windowKey{userID, feature, PeriodStart(now)}
	count := l.counts[key]

	if limit == plan.Unlimited {
		count++
		l.counts[key] = count
		return Decision{Allowed: true, Used: count}, nil
	}

	if limit <= 0 || count+1 > limit {
		return Decision{Allowed: false, Used: count}, nil
	}

	count++
	l.counts[key] = count
	return Decision{Allowed: true, Used: count}, nil
}
