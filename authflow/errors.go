package authflow

import "errors"

var (
	// ErrInvalidParameter is returned when a required argument is missing
	// or malformed.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrExpiredRequest is returned when a callback arrives for a state that
	// was never issued, already consumed, or past its lifetime.
	ErrExpiredRequest = errors.New("authentication request not found or expired")

	// ErrMissingIDToken is returned when the token response lacks an
	// id_token.
	ErrMissingIDToken = errors.New("token response did not include an id_token")

	// ErrInvalidNonce is returned when the id_token nonce does not match the
	// one bound to the pending request.
	ErrInvalidNonce = errors.New("id_token nonce does not match request")

	// ErrExchangeFailed is returned when the authorization-code exchange was
	// rejected by the token endpoint.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrNoSession is returned when a token cache lookup misses.
	ErrNoSession = errors.New("no session found")
)
