package billing

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	APIKey        string `env:"STRIPE_API_KEY,required"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET,required"`
}

// StripeProvider implements Provider on the official Stripe SDK.
// The SDK client is owned by the provider instance, not a package global,
// so tests and multi-tenant setups can run several providers side by side.
type StripeProvider struct {
	sc     *client.API
	secret string
}

// NewStripeProvider creates a Stripe-backed billing provider.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	sc := &client.API{}
	sc.Init(cfg.APIKey, nil)

	return &StripeProvider{sc: sc, secret: cfg.WebhookSecret}, nil
}

func (p *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, errors.Join(ErrSignatureVerification, err)
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		return p.checkoutCompletedEvent(ctx, event.ID, string(event.Type), &sess)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		kind := EventSubscriptionUpdated
		if event.Type == "customer.subscription.deleted" {
			kind = EventSubscriptionDeleted
		}
		return subscriptionEvent(event.ID, string(event.Type), kind, &sub), nil

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, errors.Join(ErrMalformedPayload, err)
		}
		return p.paymentFailedEvent(ctx, event.ID, string(event.Type), &inv)

	default:
		return &Event{ID: event.ID, Type: EventUnhandled, ProviderEvent: string(event.Type)}, nil
	}
}

// checkoutCompletedEvent resolves the session's subscription so the event
// carries the same period and price data the subscription webhooks do.
func (p *StripeProvider) checkoutCompletedEvent(ctx context.Context, eventID, providerEvent string, sess *stripe.CheckoutSession) (*Event, error) {
	ev := &Event{
		ID:            eventID,
		Type:          EventCheckoutCompleted,
		ProviderEvent: providerEvent,
		UserID:        sessionUserID(sess),
	}
	if sess.Customer != nil {
		ev.CustomerID = sess.Customer.ID
	}

	if sess.Subscription != nil {
		sub, err := p.getSubscription(ctx, sess.Subscription.ID)
		if err != nil {
			return nil, err
		}
		fillFromSubscription(ev, sub)
	}
	return ev, nil
}

func (p *StripeProvider) paymentFailedEvent(ctx context.Context, eventID, providerEvent string, inv *stripe.Invoice) (*Event, error) {
	ev := &Event{
		ID:            eventID,
		Type:          EventPaymentFailed,
		ProviderEvent: providerEvent,
	}
	if inv.Customer != nil {
		ev.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		// The invoice itself has no user metadata; the subscription does.
		sub, err := p.getSubscription(ctx, inv.Subscription.ID)
		if err != nil {
			return nil, err
		}
		ev.SubscriptionID = sub.ID
		ev.UserID = sub.Metadata["user_id"]
	}
	return ev, nil
}

func (p *StripeProvider) getSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := p.sc.Subscriptions.Get(id, params)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}
	return sub, nil
}

func (p *StripeProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("subscription")

	sess, err := p.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, errors.Join(ErrSessionNotFound, err)
		}
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	out := &CheckoutSession{
		ID:     sess.ID,
		Paid:   sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		UserID: sessionUserID(sess),
	}
	if sess.Customer != nil {
		out.CustomerID = sess.Customer.ID
	}
	if sess.Subscription != nil {
		out.SubscriptionID = sess.Subscription.ID
		out.Status = string(sess.Subscription.Status)
		out.CurrentPeriodStart = unixTime(sess.Subscription.CurrentPeriodStart)
		out.CurrentPeriodEnd = unixTime(sess.Subscription.CurrentPeriodEnd)
		out.CancelAtPeriodEnd = sess.Subscription.CancelAtPeriodEnd
		out.PriceID = subscriptionPriceID(sess.Subscription)
	}
	return out, nil
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"user_id": req.UserID},
		},
	}
	params.Context = ctx
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	sess, err := p.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, errors.Join(ErrProviderUnavailable, err)
	}

	return &CheckoutLink{URL: sess.URL, SessionID: sess.ID}, nil
}

func subscriptionEvent(eventID, providerEvent string, kind EventType, sub *stripe.Subscription) *Event {
	ev := &Event{
		ID:             eventID,
		Type:           kind,
		ProviderEvent:  providerEvent,
		UserID:         sub.Metadata["user_id"],
		SubscriptionID: sub.ID,
	}
	fillFromSubscription(ev, sub)
	return ev
}

func fillFromSubscription(ev *Event, sub *stripe.Subscription) {
	ev.SubscriptionID = sub.ID
	ev.Status = string(sub.Status)
	ev.CurrentPeriodStart = unixTime(sub.CurrentPeriodStart)
	ev.CurrentPeriodEnd = unixTime(sub.CurrentPeriodEnd)
	ev.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	ev.CanceledAt = unixTime(sub.CanceledAt)
	ev.PriceID = subscriptionPriceID(sub)
	if sub.Customer != nil {
		ev.CustomerID = sub.Customer.ID
	}
	if ev.UserID == "" {
		ev.UserID = sub.Metadata["user_id"]
	}
}

func subscriptionPriceID(sub *stripe.Subscription) string {
	if sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return ""
	}
	return sub.Items.Data[0].Price.ID
}

// sessionUserID prefers client_reference_id and falls back to metadata, the
// two places the checkout creator records the owner.
func sessionUserID(sess *stripe.CheckoutSession) string {
	if sess.ClientReferenceID != "" {
		return sess.ClientReferenceID
	}
	return sess.Metadata["user_id"]
}

func unixTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
