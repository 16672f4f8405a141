package bearer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/entraguard/entraguard/keyset"
)

var (
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMalformedToken covers tokens that are not compact JWS, or whose
	// header lacks a key id.
	ErrMalformedToken = errors.New("malformed token")

	// ErrUnsupportedAlgorithm is returned for any declared signing algorithm
	// other than RS256.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token is expired")
	ErrInvalidIssuer    = errors.New("invalid issuer")
	ErrInvalidAudience  = errors.New("invalid audience")
)

// Key lookup failures surface from the keyset package unchanged, so callers
// can branch with errors.Is on a single sentinel regardless of which layer
// reported it.
var (
	ErrKeyFetchFailed = keyset.ErrFetchFailed
	ErrKeyNotFound    = keyset.ErrKeyNotFound
)

// InvalidAudienceError reports an audience mismatch along with the received
// audience and the full attempted list for diagnostics. It unwraps to
// ErrInvalidAudience. The audiences it echoes come from claims whose
// signature has already been verified.
type InvalidAudienceError struct {
	ReceivedAudience  string
	ExpectedAudiences []string
}

func (e *InvalidAudienceError) Error() string {
	return fmt.Sprintf("invalid audience %q, expected one of: %s",
		e.ReceivedAudience, strings.Join(e.ExpectedAudiences, ", "))
}

func (e *InvalidAudienceError) Unwrap() error { return ErrInvalidAudience }
