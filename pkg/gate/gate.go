// Package gate answers the one question product code asks before doing
// billable work: may this user use this feature right now, and if so, burn
// one unit of quota. Entitlement resolution and quota consumption happen in
// a single call so there is no window where a check passes but the consume
// references a different tier.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/careerforge/backend/pkg/plan"
	"github.com/careerforge/backend/pkg/subscription"
	"github.com/careerforge/backend/pkg/usage"
)

// ErrQuotaExceeded is returned when the feature's monthly quota is spent.
// The wrapping QuotaError carries the numbers for the client response.
var ErrQuotaExceeded = errors.New("feature quota exceeded")

// QuotaError reports a quota denial with enough detail to render it.
type QuotaError struct {
	Feature plan.Feature
	Tier    plan.Tier
	Limit   int64
	Used    int64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded for %s on tier %s: %d/%d used", e.Feature, e.Tier, e.Used, e.Limit)
}

func (e *QuotaError) Unwrap() error { return ErrQuotaExceeded }

// Grant is the result of a successful CheckAndConsume.
type Grant struct {
	Feature plan.Feature
	Tier    plan.Tier
	// Limit is plan.Unlimited for unbounded features.
	Limit int64
	// Used is the count after this consumption.
	Used int64
}

// FeatureUsage is one row of a usage report.
type FeatureUsage struct {
	Feature plan.Feature
	// Limit is plan.Unlimited for unbounded features.
	Limit int64
	Used  int64
}

// UsageReport summarizes the caller's current entitlements and consumption.
type UsageReport struct {
	Tier        plan.Tier
	PeriodStart time.Time
	Features    []FeatureUsage
}

// FeatureGate resolves a user's effective tier and enforces per-feature
// monthly quotas.
type FeatureGate struct {
	subs    subscription.Store
	ledger  usage.Ledger
	catalog *plan.Catalog
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a FeatureGate.
type Option func(*FeatureGate)

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(g *FeatureGate) { g.now = now }
}

func NewFeatureGate(subs subscription.Store, ledger usage.Ledger, catalog *plan.Catalog, log *slog.Logger, opts ...Option) *FeatureGate {
	g := &FeatureGate{
		subs:    subs,
		ledger:  ledger,
		catalog: catalog,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckAndConsume burns one unit of the feature's quota if the user's
// effective tier still has room this month. On denial no usage is recorded,
// so a rejected request never costs quota. Unknown features resolve to a
// zero limit and are denied.
func (g *FeatureGate) CheckAndConsume(ctx context.Context, userID uuid.UUID, feature plan.Feature) (*Grant, error) {
	now := g.now()
	tier, err := g.effectiveTier(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	limit := g.catalog.LimitFor(tier, feature)

	decision, err := g.ledger.TryConsume(ctx, userID, feature, limit, now)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		g.log.InfoContext(ctx, "feature access denied",
			slog.String("user_id", userID.String()),
			slog.String("feature", string(feature)),
			slog.String("tier", string(tier)),
			slog.Int64("limit", limit),
			slog.Int64("used", decision.Used))
		return nil, &QuotaError{Feature: feature, Tier: tier, Limit: limit, Used: decision.Used}
	}

	return &Grant{Feature: feature, Tier: tier, Limit: limit, Used: decision.Used}, nil
}

// Usage reports current-period consumption for every known feature without
// consuming anything.
func (g *FeatureGate) Usage(ctx context.Context, userID uuid.UUID) (*UsageReport, error) {
	now := g.now()
	tier, err := g.effectiveTier(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	report := &UsageReport{
		Tier:        tier,
		PeriodStart: usage.PeriodStart(now),
		Features:    make([]FeatureUsage, 0, len(plan.Features)),
	}
	for _, feature := range plan.Features {
		used, err := g.ledger.Peek(ctx, userID, feature, now)
		if err != nil {
			return nil, err
		}
		report.Features = append(report.Features, FeatureUsage{
			Feature: feature,
			Limit:   g.catalog.LimitFor(tier, feature),
			Used:    used,
		})
	}
	return report, nil
}

// effectiveTier resolves the tier the user is entitled to right now.
// A missing subscription row means Free, not an error.
func (g *FeatureGate) effectiveTier(ctx context.Context, userID uuid.UUID, now time.Time) (plan.Tier, error) {
	sub, err := g.subs.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			return plan.TierFree, nil
		}
		return "", err
	}
	return sub.EffectiveTier(now), nil
}
