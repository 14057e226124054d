package plan

import "strings"

// Tier is a named subscription plan determining feature quotas.
type Tier string

const (
	TierFree  Tier = "free"
	TierBasic Tier = "basic"
	TierPro   Tier = "pro"
)

// Tiers lists all known tiers in ascending order of entitlement.
var Tiers = []Tier{TierFree, TierBasic, TierPro}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPro:
		return true
	}
	return false
}

// Rank returns the tier's position in the upgrade order (Free=0, Basic=1, Pro=2).
// Unknown tiers rank below Free so they never grant access by accident.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierBasic:
		return 1
	case TierPro:
		return 2
	}
	return -1
}

// ParseTier converts a string to a Tier.
// Returns ErrUnknownTier for anything that is not a known tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrUnknownTier
	}
	return t, nil
}

// Feature is a gated product capability with a monthly usage quota.
type Feature string

const (
	FeatureCoverLetter   Feature = "coverLetter"
	FeatureQuiz          Feature = "quiz"
	FeatureScheduledCall Feature = "scheduledCall"
	FeatureResumeReview  Feature = "resumeReview"
)

// Features lists all gated features.
var Features = []Feature{FeatureCoverLetter, FeatureQuiz, FeatureScheduledCall, FeatureResumeReview}

// Valid reports whether f is a known feature.
func (f Feature) Valid() bool {
	switch f {
	case FeatureCoverLetter, FeatureQuiz, FeatureScheduledCall, FeatureResumeReview:
		return true
	}
	return false
}

const (
	// Unlimited indicates no limit for a feature (-1 chosen for SQL compatibility).
	Unlimited int64 = -1
)
