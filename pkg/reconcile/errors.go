package reconcile

import "errors"

var (
	// ErrOwnershipMismatch is returned when a checkout session's embedded
	// owner does not match the authenticated caller. No mutation is applied.
	ErrOwnershipMismatch = errors.New("checkout session does not belong to caller")

	// ErrPaymentIncomplete is returned when a checkout session exists but
	// its payment has not settled yet.
	ErrPaymentIncomplete = errors.New("checkout session payment is not complete")

	// ErrWalletMismatch is returned when the paying wallet address does not
	// match the address linked to the caller's account.
	ErrWalletMismatch = errors.New("wallet address does not match linked wallet")

	// ErrTierNotPurchasable is returned for on-chain payments naming a tier
	// that cannot be bought, such as the free tier.
	ErrTierNotPurchasable = errors.New("tier cannot be purchased")

	// ErrMalformedEvent is returned for webhook events that verify but are
	// missing fields required to apply them, such as the user identity.
	ErrMalformedEvent = errors.New("webhook event is missing required fields")

	// ErrUnknownPrice is returned when a checkout is requested for a price
	// that maps to no paid tier.
	ErrUnknownPrice = errors.New("price does not map to a paid tier")

	// ErrEventLogUnavailable wraps storage failures while checking or
	// recording webhook event IDs.
	ErrEventLogUnavailable = errors.New("webhook event log unavailable")
)
