package plan

import (
	"errors"
	"fmt"
	"maps"
)

// Catalog maps tiers to per-feature monthly limits and provider price IDs to
// tiers. It is immutable after construction.
type Catalog struct {
	limits map[Tier]map[Feature]int64
	prices map[string]Tier
}

// NewCatalog builds a Catalog from per-tier limits and a provider price-ID
// mapping. It validates the monotonic upgrade guarantee: for every feature,
// limit(Free) <= limit(Basic) <= limit(Pro), with Unlimited ordered above any
// finite value.
func NewCatalog(limits map[Tier]map[Feature]int64, prices map[string]Tier) (*Catalog, error) {
	for _, tier := range Tiers {
		if _, ok := limits[tier]; !ok {
			return nil, errors.Join(ErrEmptyCatalog, fmt.Errorf("missing limits for tier %q", tier))
		}
	}

	for _, feature := range Features {
		prev := limitOrZero(limits, TierFree, feature)
		for _, tier := range Tiers[1:] {
			cur := limitOrZero(limits, tier, feature)
			if quotaLess(cur, prev) {
				return nil, errors.Join(ErrNonMonotonicLimits,
					fmt.Errorf("feature %q: limit(%s)=%d < limit(%s)=%d", feature, tier, cur, prevTier(tier), prev))
			}
			prev = cur
		}
	}

	for priceID, tier := range prices {
		if !tier.Valid() {
			return nil, errors.Join(ErrPriceMappedToUnknown, fmt.Errorf("price %q -> %q", priceID, tier))
		}
	}

	c := &Catalog{
		limits: make(map[Tier]map[Feature]int64, len(limits)),
		prices: maps.Clone(prices),
	}
	for tier, featureLimits := range limits {
		c.limits[tier] = maps.Clone(featureLimits)
	}
	if c.prices == nil {
		c.prices = make(map[string]Tier)
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on invalid configuration.
// Intended for static catalogs known at compile time.
func MustCatalog(limits map[Tier]map[Feature]int64, prices map[string]Tier) *Catalog {
	c, err := NewCatalog(limits, prices)
	if err != nil {
		panic(fmt.Sprintf("plan: invalid catalog: %v", err))
	}
	return c
}

// LimitFor returns the monthly limit for a tier/feature pair.
// Unknown pairs resolve to 0 so unrecognized input never grants access.
func (c *Catalog) LimitFor(tier Tier, feature Feature) int64 {
	featureLimits, ok := c.limits[tier]
	if !ok {
		return 0
	}
	limit, ok := featureLimits[feature]
	if !ok {
		return 0
	}
	return limit
}

// TierForPrice maps a provider price ID to a tier.
// Unrecognized price IDs map to Free, never to an assumed upgrade.
func (c *Catalog) TierForPrice(priceID string) Tier {
	if tier, ok := c.prices[priceID]; ok {
		return tier
	}
	return TierFree
}

// Limits returns a copy of the per-feature limits for a tier.
func (c *Catalog) Limits(tier Tier) map[Feature]int64 {
	featureLimits, ok := c.limits[tier]
	if !ok {
		return map[Feature]int64{}
	}
	return maps.Clone(featureLimits)
}

// DefaultLimits is the product catalog shipped with the service.
// Scheduled calls are a paid-only feature; Pro removes the caps entirely.
func DefaultLimits() map[Tier]map[Feature]int64 {
	return map[Tier]map[Feature]int64{
		TierFree: {
			FeatureCoverLetter:   3,
			FeatureQuiz:          5,
			FeatureScheduledCall: 0,
			FeatureResumeReview:  1,
		},
		TierBasic: {
			FeatureCoverLetter:   25,
			FeatureQuiz:          50,
			FeatureScheduledCall: 2,
			FeatureResumeReview:  10,
		},
		TierPro: {
			FeatureCoverLetter:   Unlimited,
			FeatureQuiz:          Unlimited,
			FeatureScheduledCall: 8,
			FeatureResumeReview:  Unlimited,
		},
	}
}

// quotaLess reports whether a is a smaller quota than b, treating Unlimited as
// larger than any finite value.
func quotaLess(a, b int64) bool {
	if a == Unlimited {
		return false
	}
	if b == Unlimited {
		return true
	}
	return a < b
}

func limitOrZero(limits map[Tier]map[Feature]int64, tier Tier, feature Feature) int64 {
	if featureLimits, ok := limits[tier]; ok {
		if limit, ok := featureLimits[feature]; ok {
			return limit
		}
	}
	return 0
}

func prevTier(t Tier) Tier {
	for i, tier := range Tiers {
		if tier == t && i > 0 {
			return Tiers[i-1]
		}
	}
	return TierFree
}
