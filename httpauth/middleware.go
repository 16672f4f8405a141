// Package httpauth is the HTTP boundary of the validation pipeline. It
// provides explicit middleware composition: RequireToken wraps a handler
// with bearer-token enforcement, translating each typed verification
// failure into a status code and a redacted JSON body, and ClaimsHandler
// renders the authenticated-caller contract.
package httpauth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/entraguard/entraguard/bearer"
)

const bearerPrefix = "Bearer "

// RequireToken returns middleware that enforces a valid bearer token and an
// authorized caller before invoking the wrapped handler. On success the
// verified claims, resolved identity, and authorization verdict are stored
// in the request context.
//
// A nil verifier answers 500 for every request: the server side is not
// properly configured, and that must not read as an authentication failure.
//
// Supported options: WithLogger, WithIdentityOptions.
func RequireToken(v *bearer.Verifier, list bearer.AllowList, opt ...Option) func(http.Handler) http.Handler {
	opts := getMiddlewareOpts(opt...)
	logger := opts.withLogger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if v == nil {
				writeError(w, http.StatusInternalServerError, ErrorBody{
					Error:   CodeConfigurationError,
					Message: "Service is not properly configured",
				})
				return
			}

			// No Authorization header or a non-Bearer scheme is rejected
			// before any key-set access.
			authHeader := req.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				logger.Warn("request without bearer token", "path", req.URL.Path)
				writeError(w, http.StatusUnauthorized, ErrorBody{
					Error:   CodeAuthenticationRequired,
					Message: "Missing or invalid Authorization header",
				})
				return
			}
			token := strings.TrimPrefix(authHeader, bearerPrefix)

			claims, err := v.Verify(req.Context(), token)
			if err != nil {
				logger.Warn("token validation failed", "error", err)
				writeVerifyError(w, err)
				return
			}

			identity := bearer.ResolveIdentity(claims, opts.withIdentityOpt...)
			verdict := bearer.Authorize(identity, list)
			if !verdict.Allowed {
				logger.Warn("caller not in allow-list",
					"client_id", identity.ClientID, "claim_used", identity.ClaimUsed)
				writeError(w, http.StatusForbidden, ErrorBody{
					Error:   CodeForbidden,
					Message: "Client ID " + identity.ClientID + " is not authorized to call this service",
					DebugInfo: ForbiddenDebugInfo{
						CallerClientID:   identity.ClientID,
						AllowedClientIDs: list.IDs,
						TokenClaims: map[string]string{
							"appid": identity.AppID,
							"azp":   identity.AuthorizedParty,
							"oid":   identity.ObjectID,
							"sub":   identity.Subject,
						},
					},
				})
				return
			}

			logger.Debug("authorized request",
				"client_id", identity.ClientID, "caller_type", string(identity.Type))
			ctx := newRequestContext(req.Context(), claims, identity, verdict)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// writeVerifyError maps a typed verification failure onto the 401 response
// contract. Audience mismatches carry the received audience and the full
// attempted list for diagnostics.
func writeVerifyError(w http.ResponseWriter, err error) {
	body := ErrorBody{Error: CodeInvalidToken}

	var audErr *bearer.InvalidAudienceError
	switch {
	case errors.As(err, &audErr):
		body.Message = "Invalid audience"
		body.ReceivedAudience = audErr.ReceivedAudience
		body.ExpectedAudiences = audErr.ExpectedAudiences
	case errors.Is(err, bearer.ErrMalformedToken):
		body.Message = "Token is malformed"
	case errors.Is(err, bearer.ErrUnsupportedAlgorithm):
		body.Message = "Unsupported signing algorithm"
	case errors.Is(err, bearer.ErrKeyFetchFailed):
		body.Message = "Failed to retrieve signing keys"
	case errors.Is(err, bearer.ErrKeyNotFound):
		body.Message = "Signing key not found"
	case errors.Is(err, bearer.ErrInvalidSignature):
		body.Message = "Invalid token signature"
	case errors.Is(err, bearer.ErrExpiredToken):
		body.Message = "Token has expired"
	case errors.Is(err, bearer.ErrInvalidIssuer):
		body.Message = "Invalid issuer"
	default:
		body.Message = "Token validation failed"
	}

	writeError(w, http.StatusUnauthorized, body)
}
