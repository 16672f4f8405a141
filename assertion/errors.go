package assertion

import "errors"

var (
	// ErrInvalidParameter is returned when a required argument is missing
	// or malformed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrSigningFailed is returned when the assertion JWT could not be
	// built or signed.
	ErrSigningFailed = errors.New("failed to sign client assertion")

	// ErrExchangeFailed is returned when the authorization server rejected
	// the client-credentials exchange.
	ErrExchangeFailed = errors.New("token exchange failed")
)
