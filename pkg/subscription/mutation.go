package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/plan"
)

// Mutation carries the canonical fields a reconciliation wants to write.
// Nil fields are left untouched by the upsert, which is what lets a partial
// update such as "cancel at period end" ride alongside full checkout data.
type Mutation struct {
	Tier                   *plan.Tier
	Status                 *Status
	PaymentMethod          *PaymentMethod
	ProviderCustomerID     *string
	ProviderSubscriptionID *string
	ProviderPriceID        *string
	WalletAddress          *string
	PaymentReference       *string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      *bool
	CanceledAt             *time.Time
}

// IsZero reports whether the mutation carries no fields at all.
func (m Mutation) IsZero() bool {
	return m.Tier == nil && m.Status == nil && m.PaymentMethod == nil &&
		m.ProviderCustomerID == nil && m.ProviderSubscriptionID == nil &&
		m.ProviderPriceID == nil && m.WalletAddress == nil &&
		m.PaymentReference == nil && m.CurrentPeriodStart == nil &&
		m.CurrentPeriodEnd == nil && m.CancelAtPeriodEnd == nil &&
		m.CanceledAt == nil
}

// staleFor reports whether the mutation loses the ordering race against the
// stored row. Provider-side period timestamps decide, not arrival order: a
// mutation whose period end is strictly older than the stored one is evidence
// that already got superseded. Mutations without a period timestamp are
// status-only partials and always apply. Equal timestamps re-apply
// idempotently, which makes webhook redelivery harmless.
func (m Mutation) staleFor(existing *Subscription) bool {
	if existing == nil || m.CurrentPeriodEnd == nil || existing.CurrentPeriodEnd == nil {
		return false
	}
	return m.CurrentPeriodEnd.Before(*existing.CurrentPeriodEnd)
}

// apply merges the mutation into existing, returning the resulting row and
// whether anything should be written. A nil existing creates a new row.
// Both store implementations funnel every write through this function so the
// merge rules exist in exactly one place.
func (m Mutation) apply(existing *Subscription, userID uuid.UUID, now time.Time) (*Subscription, bool) {
	if existing == nil {
		sub := &Subscription{
			UserID:        userID,
			Tier:          plan.TierFree,
			Status:        StatusIncomplete,
			PaymentMethod: PaymentMethodNone,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		m.overwrite(sub)
		return sub, true
	}

	if m.staleFor(existing) {
		return existing, false
	}

	merged := *existing
	m.overwrite(&merged)
	merged.UpdatedAt = now
	return &merged, true
}

func (m Mutation) overwrite(sub *Subscription) {
	if m.Tier != nil {
		sub.Tier = *m.Tier
	}
	if m.Status != nil {
		sub.Status = *m.Status
		// A subscription that comes back to life sheds its cancellation mark
		// unless the mutation sets one explicitly.
		if *m.Status == StatusActive && m.CanceledAt == nil {
			sub.CanceledAt = nil
		}
	}
	if m.PaymentMethod != nil {
		sub.PaymentMethod = *m.PaymentMethod
	}
	if m.ProviderCustomerID != nil {
		sub.ProviderCustomerID = *m.ProviderCustomerID
	}
	if m.ProviderSubscriptionID != nil {
		sub.ProviderSubscriptionID = *m.ProviderSubscriptionID
	}
	if m.ProviderPriceID != nil {
		sub.ProviderPriceID = *m.ProviderPriceID
	}
	if m.WalletAddress != nil {
		sub.WalletAddress = *m.WalletAddress
	}
	if m.PaymentReference != nil {
		sub.PaymentReference = *m.PaymentReference
	}
	if m.CurrentPeriodStart != nil {
		sub.CurrentPeriodStart = ptrTime(*m.CurrentPeriodStart)
	}
	if m.CurrentPeriodEnd != nil {
		sub.CurrentPeriodEnd = ptrTime(*m.CurrentPeriodEnd)
	}
	if m.CancelAtPeriodEnd != nil {
		sub.CancelAtPeriodEnd = *m.CancelAtPeriodEnd
	}
	if m.CanceledAt != nil {
		sub.CanceledAt = ptrTime(*m.CanceledAt)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

// Ptr returns a pointer to v. Convenience for building mutations.
func Ptr[T any](v T) *T { return &v }
