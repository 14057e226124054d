// Package usage tracks per-user, per-feature usage counts in calendar-month
// windows and provides the atomic check-and-increment primitive that feature
// gating is built on.
//
// Two interchangeable ledger backends exist: a Postgres ledger for production
// and an in-memory ledger for tests and deployments without a usage table.
// The backend is chosen once at startup via configuration, never discovered
// at runtime through error handling. Both derive the period key the same way,
// so Peek and TryConsume can never disagree about which window they read.
package usage
