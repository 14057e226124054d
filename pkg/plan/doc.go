// Package plan defines subscription tiers and the per-feature quota catalog.
//
// The catalog is static configuration, not persisted state. Lookups are pure
// and fail closed: an unknown tier/feature pair resolves to a limit of zero
// rather than unlimited use.
package plan
