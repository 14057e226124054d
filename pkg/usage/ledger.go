package usage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/plan"
)

// Decision is the outcome of a TryConsume call.
type Decision struct {
	Allowed bool
	// Used is the count after the call: incremented on allow, unchanged on deny.
	Used int64
}

// Ledger records feature usage in calendar-month windows.
type Ledger interface {
	// Peek returns the current-period usage without mutating it.
	Peek(ctx context.Context, userID uuid.UUID, feature plan.Feature, now time.Time) (int64, error)

	// TryConsume increments the current-period count only if the resulting
	// count stays within limit, atomically. A limit of plan.Unlimited always
	// allows and still increments so usage stays reportable. A limit of zero
	// (or below) denies without touching storage.
	TryConsume(ctx context.Context, userID uuid.UUID, feature plan.Feature, limit int64, now time.Time) (Decision, error)
}

// PeriodStart returns the window key for a point in time: the first day of
// its calendar month at midnight UTC. Peek and TryConsume both key windows
// through this function.
func PeriodStart(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
