package httpauth

import (
	"net/http"
	"time"

	"github.com/entraguard/entraguard/bearer"
)

// SuccessResponse is the contract returned to an authenticated, authorized
// caller.
type SuccessResponse struct {
	Message       string     `json:"message"`
	Authenticated bool       `json:"authenticated"`
	Timestamp     string     `json:"timestamp"`
	CallerInfo    CallerInfo `json:"caller_info"`
	TokenInfo     TokenInfo  `json:"token_info"`
	Validation    Validation `json:"validation"`
}

// CallerInfo reports the resolved caller identity.
type CallerInfo struct {
	ClientID   string `json:"client_id"`
	ObjectID   string `json:"object_id"`
	Subject    string `json:"subject"`
	AppIDClaim string `json:"appid_claim"`
	AzpClaim   string `json:"azp_claim"`
	CallerType string `json:"caller_type"`
}

// TokenInfo reports token metadata; times are ISO-8601 UTC.
type TokenInfo struct {
	Audience  string `json:"audience"`
	Issuer    string `json:"issuer"`
	IssuedAt  string `json:"issued_at,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Validation names which claim produced the identity and the allow-list
// outcome.
type Validation struct {
	ClaimUsed        string   `json:"claim_used"`
	AllowedClientIDs []string `json:"allowed_client_ids"`
	MatchedClientID  string   `json:"matched_client_id,omitempty"`
	Method           string   `json:"method"`
}

// ClaimsHandler renders the SuccessResponse for a request that passed
// RequireToken. It must only be mounted behind that middleware.
func ClaimsHandler(list bearer.AllowList) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		claims, ok := ClaimsFromContext(req.Context())
		if !ok {
			writeError(w, http.StatusInternalServerError, ErrorBody{
				Error:   CodeConfigurationError,
				Message: "Handler mounted without token middleware",
			})
			return
		}
		identity, _ := IdentityFromContext(req.Context())
		verdict, _ := VerdictFromContext(req.Context())

		resp := SuccessResponse{
			Message:       "Successfully authenticated!",
			Authenticated: true,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			CallerInfo: CallerInfo{
				ClientID:   identity.ClientID,
				ObjectID:   identity.ObjectID,
				Subject:    identity.Subject,
				AppIDClaim: identity.AppID,
				AzpClaim:   identity.AuthorizedParty,
				CallerType: string(identity.Type),
			},
			TokenInfo: TokenInfo{
				Audience: claims.Audience(),
				Issuer:   claims.Issuer(),
			},
			Validation: Validation{
				ClaimUsed:        identity.ClaimUsed,
				AllowedClientIDs: list.IDs,
				MatchedClientID:  verdict.MatchedID,
				Method:           "code-based-jwt-validation",
			},
		}
		if iat, ok := claims.IssuedAt(); ok {
			resp.TokenInfo.IssuedAt = iat.Format(time.RFC3339)
		}
		if exp, ok := claims.Expiry(); ok {
			resp.TokenInfo.ExpiresAt = exp.Format(time.RFC3339)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
