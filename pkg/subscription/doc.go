// Package subscription owns the single per-user subscription record and its
// reconciliation semantics.
//
// Writes arrive from three unsynchronized sources (payment-provider webhooks,
// client checkout verification, client on-chain receipts), so the store
// exposes exactly one write operation: an idempotent partial upsert keyed by
// user identity. Merge and ordering rules live in this package so every write
// path shares them; see Mutation and the Store implementations.
package subscription
