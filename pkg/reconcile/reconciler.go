package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/billing"
	"github.com/careerforge/backend/pkg/plan"
	"github.com/careerforge/backend/pkg/subscription"
	"github.com/careerforge/backend/pkg/wallet"
)

// providerName tags webhook event IDs in the event log. There is one payment
// provider today; the tag keeps the log unambiguous if a second one arrives.
const providerName = "stripe"

// onchainPeriod is the entitlement window granted per on-chain payment.
func onchainPeriod(now time.Time) (time.Time, time.Time) {
	return now, now.AddDate(0, 1, 0)
}

// Reconciler merges payment evidence into subscription state. All
// dependencies are injected; it holds no package-level state.
type Reconciler struct {
	provider billing.Provider
	store    subscription.Store
	events   EventLog
	wallets  wallet.LinkedWalletSource
	catalog  *plan.Catalog
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func NewReconciler(
	provider billing.Provider,
	store subscription.Store,
	events EventLog,
	wallets wallet.LinkedWalletSource,
	catalog *plan.Catalog,
	log *slog.Logger,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		provider: provider,
		store:    store,
		events:   events,
		wallets:  wallets,
		catalog:  catalog,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleWebhook verifies, deduplicates and applies a provider webhook
// delivery. Unhandled event kinds and replays return nil so the transport
// layer acknowledges them and the provider stops redelivering. Signature and
// parse failures surface billing.ErrSignatureVerification wrapped errors.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := r.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	if ev.Type == billing.EventUnhandled {
		r.log.DebugContext(ctx, "ignoring webhook event",
			slog.String("event_id", ev.ID),
			slog.String("provider_event", ev.ProviderEvent))
		return nil
	}

	seen, err := r.events.Seen(ctx, providerName, ev.ID)
	if err != nil {
		return err
	}
	if seen {
		r.log.InfoContext(ctx, "webhook event already processed",
			slog.String("event_id", ev.ID))
		return nil
	}

	if err := r.applyEvent(ctx, ev); err != nil {
		return err
	}

	// Marked only after a successful apply so a storage failure above leaves
	// the event eligible for the provider's retry.
	if err := r.events.MarkProcessed(ctx, providerName, ev.ID, string(ev.Type)); err != nil {
		return err
	}

	r.log.InfoContext(ctx, "webhook event applied",
		slog.String("event_id", ev.ID),
		slog.String("event_type", string(ev.Type)),
		slog.String("user_id", ev.UserID))
	return nil
}

func (r *Reconciler) applyEvent(ctx context.Context, ev *billing.Event) error {
	userID, err := uuid.Parse(ev.UserID)
	if err != nil {
		return fmt.Errorf("%w: event %s has no valid user identity", ErrMalformedEvent, ev.ID)
	}

	var m subscription.Mutation
	switch ev.Type {
	case billing.EventCheckoutCompleted, billing.EventSubscriptionUpdated:
		m = r.providerMutation(ev.PriceID, ev.Status, ev.CustomerID, ev.SubscriptionID,
			ev.CurrentPeriodStart, ev.CurrentPeriodEnd, ev.CancelAtPeriodEnd)
		if !ev.CanceledAt.IsZero() {
			m.CanceledAt = subscription.Ptr(ev.CanceledAt)
		}

	case billing.EventSubscriptionDeleted:
		canceledAt := ev.CanceledAt
		if canceledAt.IsZero() {
			canceledAt = r.now()
		}
		m = subscription.Mutation{
			Status:            subscription.Ptr(subscription.StatusCanceled),
			CancelAtPeriodEnd: subscription.Ptr(false),
			CanceledAt:        subscription.Ptr(canceledAt),
		}
		if !ev.CurrentPeriodEnd.IsZero() {
			m.CurrentPeriodStart = subscription.Ptr(ev.CurrentPeriodStart)
			m.CurrentPeriodEnd = subscription.Ptr(ev.CurrentPeriodEnd)
		}

	case billing.EventPaymentFailed:
		// Status-only partial: no period timestamps, so it applies on top of
		// whatever checkout data is already stored.
		m = subscription.Mutation{
			Status: subscription.Ptr(subscription.StatusPastDue),
		}

	default:
		return nil
	}

	_, err = r.store.Reconcile(ctx, userID, m)
	return err
}

// VerifyCheckoutSession is the client-driven success path: after returning
// from hosted checkout the client hands over its session ID, and the session
// is fetched fresh from the provider rather than trusting anything the
// client claims. The session must belong to the caller and must be paid.
func (r *Reconciler) VerifyCheckoutSession(ctx context.Context, callerID uuid.UUID, sessionID string) (*subscription.Subscription, error) {
	sess, err := r.provider.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sess.UserID != callerID.String() {
		r.log.WarnContext(ctx, "checkout session ownership mismatch",
			slog.String("session_id", sessionID),
			slog.String("caller_id", callerID.String()),
			slog.String("session_user_id", sess.UserID))
		return nil, ErrOwnershipMismatch
	}
	if !sess.Paid {
		return nil, ErrPaymentIncomplete
	}

	m := r.providerMutation(sess.PriceID, sess.Status, sess.CustomerID, sess.SubscriptionID,
		sess.CurrentPeriodStart, sess.CurrentPeriodEnd, sess.CancelAtPeriodEnd)
	return r.store.Reconcile(ctx, callerID, m)
}

// RecordOnchainPayment grants a fixed one-month entitlement window for a
// payment observed on chain. The paying wallet must match the wallet the
// caller linked to their account beforehand.
func (r *Reconciler) RecordOnchainPayment(ctx context.Context, callerID uuid.UUID, tier plan.Tier, walletAddress, txReference string) (*subscription.Subscription, error) {
	if !tier.Valid() || tier == plan.TierFree {
		return nil, fmt.Errorf("%w: %q", ErrTierNotPurchasable, tier)
	}
	if err := wallet.ValidateTxReference(txReference); err != nil {
		return nil, err
	}

	addr, err := wallet.NormalizeAddress(walletAddress)
	if err != nil {
		return nil, err
	}
	linked, err := r.wallets.LinkedAddress(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if addr != linked {
		r.log.WarnContext(ctx, "onchain payment wallet mismatch",
			slog.String("caller_id", callerID.String()),
			slog.String("paying_wallet", addr))
		return nil, ErrWalletMismatch
	}

	start, end := onchainPeriod(r.now())
	m := subscription.Mutation{
		Tier:               subscription.Ptr(tier),
		Status:             subscription.Ptr(subscription.StatusActive),
		PaymentMethod:      subscription.Ptr(subscription.PaymentMethodWeb3),
		WalletAddress:      subscription.Ptr(addr),
		PaymentReference:   subscription.Ptr(txReference),
		CurrentPeriodStart: subscription.Ptr(start),
		CurrentPeriodEnd:   subscription.Ptr(end),
		CancelAtPeriodEnd:  subscription.Ptr(false),
	}
	return r.store.Reconcile(ctx, callerID, m)
}

// CreateCheckout opens a hosted checkout session for a catalog price and
// embeds the caller's identity so the later verification can prove
// ownership.
func (r *Reconciler) CreateCheckout(ctx context.Context, callerID uuid.UUID, priceID, email, successURL, cancelURL string) (*billing.CheckoutLink, error) {
	if r.catalog.TierForPrice(priceID) == plan.TierFree {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPrice, priceID)
	}
	return r.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		UserID:     callerID.String(),
		PriceID:    priceID,
		Email:      email,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
}

// providerMutation canonicalizes provider-sourced subscription data. The
// webhook and session-verify paths both call it, which is what guarantees
// they write identical state for the same underlying payment.
func (r *Reconciler) providerMutation(priceID, status, customerID, subscriptionID string, periodStart, periodEnd time.Time, cancelAtPeriodEnd bool) subscription.Mutation {
	m := subscription.Mutation{
		Tier:              subscription.Ptr(r.catalog.TierForPrice(priceID)),
		Status:            subscription.Ptr(mapProviderStatus(status)),
		PaymentMethod:     subscription.Ptr(subscription.PaymentMethodStripe),
		CancelAtPeriodEnd: subscription.Ptr(cancelAtPeriodEnd),
	}
	if customerID != "" {
		m.ProviderCustomerID = subscription.Ptr(customerID)
	}
	if subscriptionID != "" {
		m.ProviderSubscriptionID = subscription.Ptr(subscriptionID)
		m.PaymentReference = subscription.Ptr(subscriptionID)
	}
	if priceID != "" {
		m.ProviderPriceID = subscription.Ptr(priceID)
	}
	if !periodStart.IsZero() {
		m.CurrentPeriodStart = subscription.Ptr(periodStart)
	}
	if !periodEnd.IsZero() {
		m.CurrentPeriodEnd = subscription.Ptr(periodEnd)
	}
	return m
}

// mapProviderStatus folds provider status strings into our four states.
// Unknown strings land on incomplete, never on active.
func mapProviderStatus(s string) subscription.Status {
	switch s {
	case "active", "trialing":
		return subscription.StatusActive
	case "past_due", "unpaid":
		return subscription.StatusPastDue
	case "canceled":
		return subscription.StatusCanceled
	default:
		return subscription.StatusIncomplete
	}
}
