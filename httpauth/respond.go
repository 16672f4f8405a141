package httpauth

import (
	"encoding/json"
	"net/http"
)

// Stable error codes automated clients can branch on.
const (
	CodeConfigurationError     = "configuration_error"
	CodeAuthenticationRequired = "authentication_required"
	CodeInvalidToken           = "invalid_token"
	CodeForbidden              = "forbidden"
)

// ErrorBody is the JSON body every failure path returns. Raw tokens,
// signing keys, and stack traces never appear here; audience diagnostics
// are the only claim echo on 401s.
type ErrorBody struct {
	Error             string      `json:"error"`
	Message           string      `json:"message"`
	ReceivedAudience  string      `json:"received_audience,omitempty"`
	ExpectedAudiences []string    `json:"expected_audiences,omitempty"`
	DebugInfo         interface{} `json:"debug_info,omitempty"`
}

// ForbiddenDebugInfo echoes the claims behind a 403 so callers can fix
// their configuration.
type ForbiddenDebugInfo struct {
	CallerClientID   string            `json:"caller_client_id"`
	AllowedClientIDs []string          `json:"allowed_client_ids"`
	TokenClaims      map[string]string `json:"token_claims"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, body ErrorBody) {
	writeJSON(w, status, body)
}
