// Package billing abstracts the payment provider behind a small interface so
// the reconciliation core can be tested against fakes and never touches a
// package-level SDK singleton. The production implementation speaks to Stripe.
package billing

import (
	"context"
	"time"
)

// EventType is the normalized billing event kind.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventPaymentFailed       EventType = "payment_failed"
	// EventUnhandled marks event kinds the service deliberately ignores.
	// Receivers still acknowledge them so the provider stops redelivering.
	EventUnhandled EventType = "unhandled"
)

// Event is a normalized, signature-verified webhook event.
// Zero-value times mean the provider sent no period information.
type Event struct {
	ID                 string // provider event ID, the idempotency key
	Type               EventType
	ProviderEvent      string // original provider event name
	UserID             string // our user ID carried in provider metadata
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         time.Time
}

// CheckoutSession is a provider checkout looked up by ID, normalized to the
// same fields the webhook path produces so both write paths converge on an
// identical subscription state.
type CheckoutSession struct {
	ID                 string
	Paid               bool
	UserID             string // owner embedded at session creation
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
}

// CheckoutRequest asks the provider to open a hosted checkout.
type CheckoutRequest struct {
	UserID     string // embedded into the session for the ownership check
	PriceID    string
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutLink is a hosted checkout session handed to the client.
type CheckoutLink struct {
	URL       string
	SessionID string
}

// Provider is the payment-provider client consumed by the reconciler.
type Provider interface {
	// ParseWebhook verifies the payload signature and normalizes the event.
	// A signature failure returns ErrSignatureVerification; the payload must
	// not be trusted in any way before this call succeeds.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)

	// GetCheckoutSession fetches a checkout session by ID, resolving the
	// attached subscription so period and price information is populated.
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// CreateCheckoutSession opens a hosted checkout for the given price.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)
}
