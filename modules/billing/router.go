package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handle returns the module's router, ready to be mounted.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/", billingModule.Handle())
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	// Provider-facing: authenticated by webhook signature.
	r.Post("/webhooks/payments", s.handleWebhook)

	// Client-facing: authenticated by bearer token.
	r.Group(func(r chi.Router) {
		r.Use(s.authMW)
		r.Post("/subscriptions/checkout", s.handleCreateCheckout)
		r.Post("/subscriptions/verify", s.handleVerifySession)
		r.Post("/subscriptions/onchain", s.handleOnchainPayment)
		r.Get("/usage", s.handleUsage)
		r.Post("/features/{feature}/consume", s.handleConsumeFeature)
	})

	return r
}
