package billing

import "errors"

var (
	ErrMissingAPIKey          = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret   = errors.New("billing provider webhook secret is required")
	ErrSignatureVerification  = errors.New("webhook signature verification failed")
	ErrMalformedPayload       = errors.New("malformed webhook payload")
	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrProviderUnavailable    = errors.New("billing provider unavailable")
	ErrMissingSessionMetadata = errors.New("checkout session carries no user identity")
)
