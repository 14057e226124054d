package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/plan"
)

// Subscription is the canonical billing record for one user.
// Exactly one row exists per user; a user without a row is on the Free tier.
// Rows are never deleted: cancellation sets Status and CanceledAt instead.
type Subscription struct {
	UserID                 uuid.UUID // primary key - one subscription per user
	Tier                   plan.Tier
	Status                 Status
	PaymentMethod          PaymentMethod
	ProviderCustomerID     string
	ProviderSubscriptionID string
	ProviderPriceID        string
	WalletAddress          string // checksummed, equals the user's linked wallet
	PaymentReference       string // tx hash or provider object ID
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	CanceledAt             *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

func (s *Subscription) IsCanceled() bool {
	return s.Status == StatusCanceled
}

// PeriodExpiredAt reports whether the paid period had ended by the given time.
// A missing period end never expires.
func (s *Subscription) PeriodExpiredAt(now time.Time) bool {
	if s.CurrentPeriodEnd == nil {
		return false
	}
	return now.After(*s.CurrentPeriodEnd)
}

// EffectiveTier resolves the tier that feature gating should honor at a given
// time. Canceled or incomplete subscriptions and expired periods fall back to
// Free; past_due keeps the paid tier as a grace window until the provider
// cancels or the period runs out.
func (s *Subscription) EffectiveTier(now time.Time) plan.Tier {
	if s == nil {
		return plan.TierFree
	}
	switch s.Status {
	case StatusActive, StatusPastDue:
		if s.PeriodExpiredAt(now) {
			return plan.TierFree
		}
		return s.Tier
	default:
		return plan.TierFree
	}
}
