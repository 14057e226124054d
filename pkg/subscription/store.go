package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Store defines subscription persistence. Each user has at most one
// subscription, so UserID serves as the primary key.
type Store interface {
	// Get retrieves a subscription by user ID.
	// Returns ErrNotFound if no row exists; callers treat that as Free tier.
	Get(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// Reconcile applies the mutation as an idempotent partial upsert,
	// serialized per user, and returns the resulting row. Stale mutations
	// (older provider period than stored) leave the row unchanged.
	Reconcile(ctx context.Context, userID uuid.UUID, m Mutation) (*Subscription, error)
}
