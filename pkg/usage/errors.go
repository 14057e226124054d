package usage

import "errors"

var (
	ErrStorageUnavailable = errors.New("usage ledger storage unavailable")
	ErrUnknownBackend     = errors.New("unknown usage ledger backend")
)
