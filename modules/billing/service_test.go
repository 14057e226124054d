package billing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerforge/backend/core"
	"github.com/careerforge/backend/modules/billing"
	"github.com/careerforge/backend/pkg/auth"
	pkgbilling "github.com/careerforge/backend/pkg/billing"
	"github.com/careerforge/backend/pkg/gate"
	"github.com/careerforge/backend/pkg/plan"
	"github.com/careerforge/backend/pkg/reconcile"
	"github.com/careerforge/backend/pkg/subscription"
	"github.com/careerforge/backend/pkg/usage"
	"github.com/careerforge/backend/pkg/wallet"
)

// fakeProvider drives the reconciler from the outside, the way Stripe would.
type fakeProvider struct {
	event      *pkgbilling.Event
	parseErr   error
	session    *pkgbilling.CheckoutSession
	sessionErr error
	link       *pkgbilling.CheckoutLink
}

func (p *fakeProvider) ParseWebhook(_ context.Context, _ []byte, _ string) (*pkgbilling.Event, error) {
	if p.parseErr != nil {
		return nil, p.parseErr
	}
	return p.event, nil
}

func (p *fakeProvider) GetCheckoutSession(_ context.Context, _ string) (*pkgbilling.CheckoutSession, error) {
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	return p.session, nil
}

func (p *fakeProvider) CreateCheckoutSession(_ context.Context, req pkgbilling.CheckoutRequest) (*pkgbilling.CheckoutLink, error) {
	if p.link == nil {
		return &pkgbilling.CheckoutLink{URL: "https://checkout.example/" + req.PriceID, SessionID: "cs_new"}, nil
	}
	return p.link, nil
}

const (
	basicPriceID = "price_basic_monthly"
	proPriceID   = "price_pro_monthly"

	linkedWallet = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	txRef        = "0xab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12cd34ef56ab12"
)

type fixture struct {
	provider *fakeProvider
	subs     *subscription.MemoryStore
	wallets  *wallet.MemoryLinkedWallets
	handler  http.Handler
	userID   uuid.UUID
}

// passthroughAuth injects a fixed caller, standing in for the JWT middleware.
func passthroughAuth(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), userID)))
		})
	}
}

func newFixture(t *testing.T, provider *fakeProvider) *fixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog := plan.MustCatalog(plan.DefaultLimits(), map[string]plan.Tier{
		basicPriceID: plan.TierBasic,
		proPriceID:   plan.TierPro,
	})

	f := &fixture{
		provider: provider,
		subs:     subscription.NewMemoryStore(),
		wallets:  wallet.NewMemoryLinkedWallets(),
		userID:   uuid.New(),
	}
	reconciler := reconcile.NewReconciler(provider, f.subs, reconcile.NewMemoryEventLog(), f.wallets, catalog, log)
	featureGate := gate.NewFeatureGate(f.subs, usage.NewMemoryLedger(), catalog, log)

	svc := billing.NewService(billing.Config{MaxWebhookBody: 65536}, reconciler, featureGate, passthroughAuth(f.userID))
	f.handler = svc.Handle()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) core.JSONResponse {
	t.Helper()
	var body core.JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid delivery", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		f := newFixture(t, &fakeProvider{event: &pkgbilling.Event{
			ID:               "evt_1",
			Type:             pkgbilling.EventCheckoutCompleted,
			UserID:           userID.String(),
			PriceID:          basicPriceID,
			Status:           "active",
			CurrentPeriodEnd: time.Now().AddDate(0, 1, 0),
		}})

		req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewBufferString(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=abc")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		sub, err := f.subs.Get(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, plan.TierBasic, sub.Tier)
	})

	t.Run("rejects a bad signature with 400", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{parseErr: pkgbilling.ErrSignatureVerification})

		rec := f.do(t, http.MethodPost, "/webhooks/payments", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_signature", decode(t, rec).Error.Code)
	})

	t.Run("acknowledges unhandled event types", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{event: &pkgbilling.Event{
			ID:   "evt_other",
			Type: pkgbilling.EventUnhandled,
		}})

		rec := f.do(t, http.MethodPost, "/webhooks/payments", map[string]string{})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestVerifyEndpoint(t *testing.T) {
	t.Parallel()

	session := func(userID uuid.UUID) *pkgbilling.CheckoutSession {
		return &pkgbilling.CheckoutSession{
			ID:               "cs_1",
			Paid:             true,
			UserID:           userID.String(),
			SubscriptionID:   "sub_1",
			PriceID:          proPriceID,
			Status:           "active",
			CurrentPeriodEnd: time.Now().AddDate(0, 1, 0),
		}
	}

	t.Run("activates the caller's subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		f.provider.session = session(f.userID)

		rec := f.do(t, http.MethodPost, "/subscriptions/verify", map[string]string{"sessionId": "cs_1"})
		require.Equal(t, http.StatusOK, rec.Code)

		data := decode(t, rec).Data.(map[string]any)
		assert.Equal(t, "pro", data["tier"])
		assert.Equal(t, "active", data["status"])
	})

	t.Run("foreign session returns 403", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		f.provider.session = session(uuid.New()) // someone else's session

		rec := f.do(t, http.MethodPost, "/subscriptions/verify", map[string]string{"sessionId": "cs_1"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "ownership_mismatch", decode(t, rec).Error.Code)
	})

	t.Run("unpaid session returns 400", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		sess := session(f.userID)
		sess.Paid = false
		f.provider.session = sess

		rec := f.do(t, http.MethodPost, "/subscriptions/verify", map[string]string{"sessionId": "cs_1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "payment_incomplete", decode(t, rec).Error.Code)
	})

	t.Run("unknown session returns 404", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{sessionErr: pkgbilling.ErrSessionNotFound})

		rec := f.do(t, http.MethodPost, "/subscriptions/verify", map[string]string{"sessionId": "cs_missing"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing session id returns 422", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})

		rec := f.do(t, http.MethodPost, "/subscriptions/verify", map[string]string{})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestOnchainEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("records a payment from the linked wallet", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		f.wallets.Link(f.userID, linkedWallet)

		rec := f.do(t, http.MethodPost, "/subscriptions/onchain", map[string]string{
			"tier":                 "pro",
			"walletAddress":        linkedWallet,
			"transactionReference": txRef,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		data := decode(t, rec).Data.(map[string]any)
		assert.Equal(t, "pro", data["tier"])
		assert.Equal(t, "web3", data["paymentMethod"])
	})

	t.Run("wallet mismatch returns 400", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		f.wallets.Link(f.userID, linkedWallet)

		rec := f.do(t, http.MethodPost, "/subscriptions/onchain", map[string]string{
			"tier":                 "pro",
			"walletAddress":        "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
			"transactionReference": txRef,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "wallet_mismatch", decode(t, rec).Error.Code)
	})

	t.Run("malformed address returns 400", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		f.wallets.Link(f.userID, linkedWallet)

		rec := f.do(t, http.MethodPost, "/subscriptions/onchain", map[string]string{
			"tier":                 "pro",
			"walletAddress":        "not-an-address",
			"transactionReference": txRef,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown tier returns 422", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})

		rec := f.do(t, http.MethodPost, "/subscriptions/onchain", map[string]string{
			"tier":                 "platinum",
			"walletAddress":        linkedWallet,
			"transactionReference": txRef,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestUsageEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("reports free-tier limits for new users", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})

		rec := f.do(t, http.MethodGet, "/usage", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decode(t, rec).Data.(map[string]any)
		assert.Equal(t, "free", data["tier"])

		usageMap := data["usage"].(map[string]any)
		coverLetter := usageMap["coverLetter"].(map[string]any)
		assert.Equal(t, float64(0), coverLetter["used"])
		assert.Equal(t, float64(3), coverLetter["limit"])
	})

	t.Run("serializes unlimited as null", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})
		_, err := f.subs.Reconcile(context.Background(), f.userID, subscription.Mutation{
			Tier:             subscription.Ptr(plan.TierPro),
			Status:           subscription.Ptr(subscription.StatusActive),
			CurrentPeriodEnd: subscription.Ptr(time.Now().AddDate(0, 1, 0)),
		})
		require.NoError(t, err)

		rec := f.do(t, http.MethodGet, "/usage", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decode(t, rec).Data.(map[string]any)
		usageMap := data["usage"].(map[string]any)
		coverLetter := usageMap["coverLetter"].(map[string]any)
		assert.Nil(t, coverLetter["limit"])
	})
}

func TestConsumeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("consumes quota until exhausted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})

		for i := 1; i <= 3; i++ {
			rec := f.do(t, http.MethodPost, "/features/coverLetter/consume", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			data := decode(t, rec).Data.(map[string]any)
			assert.Equal(t, float64(i), data["used"])
		}

		rec := f.do(t, http.MethodPost, "/features/coverLetter/consume", nil)
		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.Equal(t, "quota_exceeded", decode(t, rec).Error.Code)
	})
}

func TestCheckoutEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the hosted checkout link", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{link: &pkgbilling.CheckoutLink{
			URL:       "https://checkout.example/cs_1",
			SessionID: "cs_1",
		}})

		rec := f.do(t, http.MethodPost, "/subscriptions/checkout", map[string]string{
			"priceId":    basicPriceID,
			"successUrl": "https://app.example/success",
			"cancelUrl":  "https://app.example/cancel",
		})
		require.Equal(t, http.StatusOK, rec.Code)
		data := decode(t, rec).Data.(map[string]any)
		assert.Equal(t, "cs_1", data["sessionId"])
	})

	t.Run("unknown price returns 400", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})

		rec := f.do(t, http.MethodPost, "/subscriptions/checkout", map[string]string{
			"priceId":    "price_unknown",
			"successUrl": "https://app.example/success",
			"cancelUrl":  "https://app.example/cancel",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing fields return 422", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &fakeProvider{})

		rec := f.do(t, http.MethodPost, "/subscriptions/checkout", map[string]string{})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}
