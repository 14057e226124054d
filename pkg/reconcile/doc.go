// Package reconcile merges payment evidence from three unsynchronized
// channels — provider webhooks, client checkout verification, and client
// on-chain receipts — into canonical subscription mutations.
//
// All three entry points funnel through the same canonicalization and the
// same subscription.Store.Reconcile call, so merge and ordering rules are
// never duplicated per channel. Webhook deliveries are deduplicated by
// provider event ID and safe to re-run.
package reconcile
