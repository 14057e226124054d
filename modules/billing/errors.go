package billing

import (
	"errors"
	"net/http"

	"github.com/careerforge/backend/core"
	pkgbilling "github.com/careerforge/backend/pkg/billing"
	"github.com/careerforge/backend/pkg/gate"
	"github.com/careerforge/backend/pkg/reconcile"
	"github.com/careerforge/backend/pkg/subscription"
	"github.com/careerforge/backend/pkg/usage"
	"github.com/careerforge/backend/pkg/wallet"
)

var (
	errQuotaExceeded     = core.NewHTTPError(http.StatusPaymentRequired, "quota_exceeded")
	errPaymentIncomplete = core.NewHTTPError(http.StatusBadRequest, "payment_incomplete")
	errOwnershipMismatch = core.NewHTTPError(http.StatusForbidden, "ownership_mismatch")
	errWalletMismatch    = core.NewHTTPError(http.StatusBadRequest, "wallet_mismatch")
	errNoLinkedWallet    = core.NewHTTPError(http.StatusBadRequest, "no_linked_wallet")
	errInvalidSignature  = core.NewHTTPError(http.StatusBadRequest, "invalid_signature")
	errMalformedEvent    = core.NewHTTPError(http.StatusBadRequest, "malformed_event")
)

// mapErr folds domain sentinel errors into their HTTP shape in one place so
// every handler renders the same taxonomy. Unmapped errors pass through and
// render as opaque 500s.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil

	// Entitlement.
	case errors.Is(err, gate.ErrQuotaExceeded):
		return errors.Join(errQuotaExceeded, err)

	// Checkout verification.
	case errors.Is(err, reconcile.ErrOwnershipMismatch):
		return errors.Join(errOwnershipMismatch, err)
	case errors.Is(err, reconcile.ErrPaymentIncomplete):
		return errors.Join(errPaymentIncomplete, err)
	case errors.Is(err, pkgbilling.ErrSessionNotFound):
		return errors.Join(core.ErrNotFound, err)

	// On-chain payments. The spec'd contract folds wallet-ownership
	// mismatch into a plain 400 rather than leaking whose wallet it is.
	case errors.Is(err, reconcile.ErrWalletMismatch):
		return errors.Join(errWalletMismatch, err)
	case errors.Is(err, wallet.ErrNoLinkedWallet):
		return errors.Join(errNoLinkedWallet, err)
	case errors.Is(err, wallet.ErrInvalidAddress),
		errors.Is(err, wallet.ErrChecksumMismatch),
		errors.Is(err, wallet.ErrInvalidTxReference),
		errors.Is(err, reconcile.ErrTierNotPurchasable),
		errors.Is(err, reconcile.ErrUnknownPrice):
		return errors.Join(core.ErrBadRequest, err)

	// Webhook ingestion.
	case errors.Is(err, pkgbilling.ErrSignatureVerification):
		return errors.Join(errInvalidSignature, err)
	case errors.Is(err, pkgbilling.ErrMalformedPayload):
		return errors.Join(errMalformedEvent, err)
	case errors.Is(err, reconcile.ErrMalformedEvent):
		return errors.Join(errMalformedEvent, err)

	// Infrastructure: tell the provider (and clients) to retry.
	case errors.Is(err, subscription.ErrStoreUnavailable),
		errors.Is(err, usage.ErrStorageUnavailable),
		errors.Is(err, reconcile.ErrEventLogUnavailable),
		errors.Is(err, pkgbilling.ErrProviderUnavailable):
		return errors.Join(core.ErrServiceUnavailable, err)

	default:
		return err
	}
}
