// Package billing exposes the subscription and metering core over HTTP:
// the payment-provider webhook sink, checkout creation and verification,
// on-chain payment submission, usage reporting, and the feature-consumption
// endpoint product routes call before doing billable work.
package billing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/billing"
	"github.com/careerforge/backend/pkg/gate"
	"github.com/careerforge/backend/pkg/plan"
	"github.com/careerforge/backend/pkg/subscription"
)

// Reconciler is the payment-evidence surface consumed by the HTTP handlers.
// *reconcile.Reconciler satisfies it; tests substitute fakes.
type Reconciler interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	VerifyCheckoutSession(ctx context.Context, callerID uuid.UUID, sessionID string) (*subscription.Subscription, error)
	RecordOnchainPayment(ctx context.Context, callerID uuid.UUID, tier plan.Tier, walletAddress, txReference string) (*subscription.Subscription, error)
	CreateCheckout(ctx context.Context, callerID uuid.UUID, priceID, email, successURL, cancelURL string) (*billing.CheckoutLink, error)
}

// Gate is the entitlement surface consumed by the HTTP handlers.
type Gate interface {
	CheckAndConsume(ctx context.Context, userID uuid.UUID, feature plan.Feature) (*gate.Grant, error)
	Usage(ctx context.Context, userID uuid.UUID) (*gate.UsageReport, error)
}

// Config carries the module's HTTP-facing settings.
type Config struct {
	// MaxWebhookBody caps the webhook request body, matching the provider's
	// own payload ceiling.
	MaxWebhookBody int64 `env:"BILLING_MAX_WEBHOOK_BODY" envDefault:"65536"`
}

// Service wires the reconciliation core and feature gate to HTTP routes.
type Service struct {
	cfg        Config
	reconciler Reconciler
	gate       Gate
	authMW     func(http.Handler) http.Handler
}

// NewService constructs the billing HTTP module. authMW guards the
// authenticated routes; the webhook route stays outside it because the
// provider authenticates by signature, not bearer token.
func NewService(cfg Config, reconciler Reconciler, g Gate, authMW func(http.Handler) http.Handler) *Service {
	return &Service{
		cfg:        cfg,
		reconciler: reconciler,
		gate:       g,
		authMW:     authMW,
	}
}
