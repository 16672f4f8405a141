package keyset

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrFetchFailed wraps any network failure, timeout, or non-2xx response
	// from the discovery keys endpoint. A previously cached set is retained
	// when a refetch fails, but the failing call never falls back to it.
	ErrFetchFailed = errors.New("key set fetch failed")

	// ErrKeyNotFound is returned when a token's kid has no exact match in the
	// tenant's key set.
	ErrKeyNotFound = errors.New("key not found in key set")
)
