package subscription

import "errors"

var (
	ErrNotFound         = errors.New("subscription not found")
	ErrEmptyMutation    = errors.New("mutation carries no fields")
	ErrStoreUnavailable = errors.New("subscription store unavailable")
)
