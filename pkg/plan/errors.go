package plan

import "errors"

var (
	ErrUnknownTier          = errors.New("unknown subscription tier")
	ErrUnknownFeature       = errors.New("unknown feature")
	ErrNonMonotonicLimits   = errors.New("tier limits must not decrease on upgrade")
	ErrEmptyCatalog         = errors.New("catalog requires limits for every tier")
	ErrDuplicatePriceID     = errors.New("price ID mapped to more than one tier")
	ErrPriceMappedToUnknown = errors.New("price ID mapped to unknown tier")
)
