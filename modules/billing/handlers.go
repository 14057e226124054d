package billing

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/careerforge/backend/core"
	"github.com/careerforge/backend/pkg/auth"
	"github.com/careerforge/backend/pkg/plan"
	"github.com/careerforge/backend/pkg/subscription"
)

type verifyRequest struct {
	SessionID string `json:"sessionId"`
}

type onchainRequest struct {
	Tier                 string `json:"tier"`
	WalletAddress        string `json:"walletAddress"`
	TransactionReference string `json:"transactionReference"`
}

type checkoutRequest struct {
	PriceID    string `json:"priceId"`
	Email      string `json:"email,omitempty"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

type checkoutResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type subscriptionResponse struct {
	Tier               plan.Tier           `json:"tier"`
	Status             subscription.Status `json:"status"`
	PaymentMethod      string              `json:"paymentMethod"`
	CurrentPeriodStart *time.Time          `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time          `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd  bool                `json:"cancelAtPeriodEnd"`
	CanceledAt         *time.Time          `json:"canceledAt,omitempty"`
}

func toSubscriptionResponse(sub *subscription.Subscription) subscriptionResponse {
	return subscriptionResponse{
		Tier:               sub.Tier,
		Status:             sub.Status,
		PaymentMethod:      string(sub.PaymentMethod),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
	}
}

type featureUsageResponse struct {
	Used int64 `json:"used"`
	// Limit is null for unlimited features.
	Limit *int64 `json:"limit"`
}

type usageResponse struct {
	Tier        plan.Tier                             `json:"tier"`
	PeriodStart time.Time                             `json:"periodStart"`
	Usage       map[plan.Feature]featureUsageResponse `json:"usage"`
}

type grantResponse struct {
	Feature plan.Feature `json:"feature"`
	Tier    plan.Tier    `json:"tier"`
	Used    int64        `json:"used"`
	// Limit is null for unlimited features.
	Limit *int64 `json:"limit"`
}

// nullableLimit serializes plan.Unlimited as JSON null.
func nullableLimit(limit int64) *int64 {
	if limit == plan.Unlimited {
		return nil
	}
	return &limit
}

// handleWebhook ingests provider webhook deliveries. The raw body is what
// the signature covers, so it is read before any decoding. Errors map to
// 400 (do not redeliver) or 503 (redeliver); everything applied, ignored or
// replayed acknowledges with 200.
func (s *Service) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxWebhookBody))
	if err != nil {
		core.JSONError(w, r, core.ErrBadRequest)
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if err := s.reconciler.HandleWebhook(r.Context(), payload, signature); err != nil {
		core.JSONError(w, r, mapErr(err))
		return
	}
	core.JSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Service) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		core.JSONError(w, r, core.ErrUnauthorized)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.JSONError(w, r, core.ErrBadRequest)
		return
	}
	valErr := core.ValidationError{}
	if req.PriceID == "" {
		valErr.Add("priceId", "required")
	}
	if req.SuccessURL == "" {
		valErr.Add("successUrl", "required")
	}
	if req.CancelURL == "" {
		valErr.Add("cancelUrl", "required")
	}
	if len(valErr) > 0 {
		core.JSONError(w, r, valErr)
		return
	}

	link, err := s.reconciler.CreateCheckout(r.Context(), callerID, req.PriceID, req.Email, req.SuccessURL, req.CancelURL)
	if err != nil {
		core.JSONError(w, r, mapErr(err))
		return
	}
	core.JSON(w, http.StatusOK, checkoutResponse{SessionID: link.SessionID, URL: link.URL})
}

func (s *Service) handleVerifySession(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		core.JSONError(w, r, core.ErrUnauthorized)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.JSONError(w, r, core.ErrBadRequest)
		return
	}
	if req.SessionID == "" {
		valErr := core.ValidationError{}
		valErr.Add("sessionId", "required")
		core.JSONError(w, r, valErr)
		return
	}

	sub, err := s.reconciler.VerifyCheckoutSession(r.Context(), callerID, req.SessionID)
	if err != nil {
		core.JSONError(w, r, mapErr(err))
		return
	}
	core.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Service) handleOnchainPayment(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		core.JSONError(w, r, core.ErrUnauthorized)
		return
	}

	var req onchainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.JSONError(w, r, core.ErrBadRequest)
		return
	}

	tier, err := plan.ParseTier(req.Tier)
	if err != nil {
		valErr := core.ValidationError{}
		valErr.Add("tier", "unknown tier")
		core.JSONError(w, r, valErr)
		return
	}

	sub, err := s.reconciler.RecordOnchainPayment(r.Context(), callerID, tier, req.WalletAddress, req.TransactionReference)
	if err != nil {
		core.JSONError(w, r, mapErr(err))
		return
	}
	core.JSON(w, http.StatusOK, toSubscriptionResponse(sub))
}

func (s *Service) handleUsage(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		core.JSONError(w, r, core.ErrUnauthorized)
		return
	}

	report, err := s.gate.Usage(r.Context(), callerID)
	if err != nil {
		core.JSONError(w, r, mapErr(err))
		return
	}

	resp := usageResponse{
		Tier:        report.Tier,
		PeriodStart: report.PeriodStart,
		Usage:       make(map[plan.Feature]featureUsageResponse, len(report.Features)),
	}
	for _, fu := range report.Features {
		resp.Usage[fu.Feature] = featureUsageResponse{
			Used:  fu.Used,
			Limit: nullableLimit(fu.Limit),
		}
	}
	core.JSON(w, http.StatusOK, resp)
}

// handleConsumeFeature burns one quota unit for the caller. Product routes
// doing billable work call this (or the gate directly); a denial is the
// client's cue to render an upgrade prompt.
func (s *Service) handleConsumeFeature(w http.ResponseWriter, r *http.Request) {
	callerID, ok := auth.CallerFromContext(r.Context())
	if !ok {
		core.JSONError(w, r, core.ErrUnauthorized)
		return
	}

	feature := plan.Feature(chi.URLParam(r, "feature"))
	grant, err := s.gate.CheckAndConsume(r.Context(), callerID, feature)
	if err != nil {
		core.JSONError(w, r, mapErr(err))
		return
	}
	core.JSON(w, http.StatusOK, grantResponse{
		Feature: grant.Feature,
		Tier:    grant.Tier,
		Used:    grant.Used,
		Limit:   nullableLimit(grant.Limit),
	})
}
