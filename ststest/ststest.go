// Package ststest provides a disposable in-process security token service
// that mimics the login.microsoftonline.com surface this module depends on:
// the tenant discovery keys endpoint, the v2.0 OIDC discovery document, and
// the authorize/token endpoints. It makes writing tests against the
// validation pipeline and the login flow much easier.
package ststest

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/require"
)

// STS is a local test security token service. All mutators are safe for
// concurrent use with the running server.
type STS struct {
	t          *testing.T
	httpServer *httptest.Server
	tenantID   string

	keyCount atomic.Int64 // counts discovery keys endpoint hits

	mu               sync.Mutex
	keys             map[string]*rsa.PrivateKey
	currentKID       string
	keysErr          bool
	clientID         string
	clientSecret     string
	expectedAuthCode string
	customClaims     map[string]interface{}
	lastNonce        string
}

// Start creates a disposable STS for the given tenant. The server is stopped
// via t.Cleanup.
func Start(t *testing.T, tenantID string) *STS {
	t.Helper()
	require := require.New(t)
	require.NotEmpty(tenantID)

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(err)

	s := &STS{
		t:            t,
		tenantID:     tenantID,
		keys:         map[string]*rsa.PrivateKey{"test-key-1": priv},
		currentKID:   "test-key-1",
		customClaims: map[string]interface{}{},
	}
	s.httpServer = httptest.NewServer(s)
	t.Cleanup(s.httpServer.Close)
	return s
}

// Addr returns the base URL for the test STS, suitable for
// keyset.WithBaseURL.
func (s *STS) Addr() string { return s.httpServer.URL }

// Issuer returns the v2.0 issuer identifier for the STS's tenant.
func (s *STS) Issuer() string {
	return fmt.Sprintf("%s/%s/v2.0", s.httpServer.URL, s.tenantID)
}

// KeysFetchCount reports how many times the discovery keys endpoint was hit.
func (s *STS) KeysFetchCount() int64 { return s.keyCount.Load() }

// CurrentKeyID returns the kid the STS currently signs with.
func (s *STS) CurrentKeyID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentKID
}

// RotateKey generates a new signing key under the given kid and makes it
// current. Previously published keys are dropped from the key set, which is
// how real rotations eventually behave.
func (s *STS) RotateKey(kid string) {
	s.t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(s.t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = map[string]*rsa.PrivateKey{kid: priv}
	s.currentKID = kid
}

// SetKeysError makes the discovery keys endpoint return a 500 until reset.
func (s *STS) SetKeysError(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keysErr = fail
}

// SetClientCreds configures the client credentials the token endpoint
// accepts for the authorization code grant.
func (s *STS) SetClientCreds(clientID, clientSecret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientID = clientID
	s.clientSecret = clientSecret
}

// SetExpectedAuthCode configures the code the authorize endpoint hands out
// and the token endpoint accepts.
func (s *STS) SetExpectedAuthCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAuthCode = code
}

// SetCustomClaims adds claims to every token the STS issues.
func (s *STS) SetCustomClaims(claims map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customClaims = claims
}

// SignClaims bundles the given claims into a JWT signed with the STS's
// current key. Standard claims (iss, aud, exp, ...) must be supplied by the
// caller, which keeps negative test cases honest.
func (s *STS) SignClaims(claims map[string]interface{}) string {
	s.t.Helper()
	s.mu.Lock()
	kid := s.currentKID
	priv := s.keys[kid]
	s.mu.Unlock()
	return SignJWT(s.t, priv, kid, claims)
}

// SignJWT signs claims with the provided RSA key and kid header. Exported so
// tests can sign with a key the STS never published.
func SignJWT(t *testing.T, priv *rsa.PrivateKey, kid string, claims map[string]interface{}) string {
	t.Helper()
	require := require.New(t)

	sig, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.RS256, Key: jose.JSONWebKey{Key: priv, KeyID: kid}},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(err)

	raw, err := jwt.Signed(sig).Claims(claims).Serialize()
	require.NoError(err)
	return raw
}

// GenerateKey returns a throwaway RSA key for negative signature tests.
func GenerateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func (s *STS) jwks() jose.JSONWebKeySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	var set jose.JSONWebKeySet
	for kid, priv := range s.keys {
		set.Keys = append(set.Keys, jose.JSONWebKey{
			Key:       priv.Public(),
			KeyID:     kid,
			Algorithm: "RS256",
			Use:       "sig",
		})
	}
	return set
}

func (s *STS) writeJSON(w http.ResponseWriter, out interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

// ServeHTTP implements the test STS's http.Handler.
func (s *STS) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.t.Helper()

	switch {
	case req.URL.Path == fmt.Sprintf("/%s/discovery/v2.0/keys", s.tenantID):
		s.keyCount.Add(1)
		s.mu.Lock()
		fail := s.keysErr
		s.mu.Unlock()
		if fail {
			http.Error(w, "upstream unavailable", http.StatusInternalServerError)
			return
		}
		s.writeJSON(w, s.jwks())

	case req.URL.Path == fmt.Sprintf("/%s/v2.0/.well-known/openid-configuration", s.tenantID):
		s.writeJSON(w, map[string]string{
			"issuer":                 s.Issuer(),
			"authorization_endpoint": fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", s.Addr(), s.tenantID),
			"token_endpoint":         fmt.Sprintf("%s/%s/oauth2/v2.0/token", s.Addr(), s.tenantID),
			"jwks_uri":               fmt.Sprintf("%s/%s/discovery/v2.0/keys", s.Addr(), s.tenantID),
			"end_session_endpoint":   fmt.Sprintf("%s/%s/oauth2/v2.0/logout", s.Addr(), s.tenantID),
		})

	case req.URL.Path == fmt.Sprintf("/%s/oauth2/v2.0/authorize", s.tenantID):
		s.handleAuthorize(w, req)

	case req.URL.Path == fmt.Sprintf("/%s/oauth2/v2.0/token", s.tenantID):
		s.handleToken(w, req)

	default:
		http.NotFound(w, req)
	}
}

func (s *STS) handleAuthorize(w http.ResponseWriter, req *http.Request) {
	qv := req.URL.Query()

	s.mu.Lock()
	code := s.expectedAuthCode
	s.lastNonce = qv.Get("nonce")
	s.mu.Unlock()

	if qv.Get("response_type") != "code" || qv.Get("state") == "" || qv.Get("redirect_uri") == "" || code == "" {
		http.Error(w, "invalid_request", http.StatusBadRequest)
		return
	}

	redirect := qv.Get("redirect_uri") +
		"?state=" + url.QueryEscape(qv.Get("state")) +
		"&code=" + url.QueryEscape(code)
	http.Redirect(w, req, redirect, http.StatusFound)
}

func (s *STS) handleToken(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	_ = req.ParseForm()

	switch req.FormValue("grant_type") {
	case "authorization_code":
		s.mu.Lock()
		code, clientID, nonce := s.expectedAuthCode, s.clientID, s.lastNonce
		custom := s.customClaims
		s.mu.Unlock()

		if req.FormValue("code") != code {
			w.WriteHeader(http.StatusUnauthorized)
			s.writeJSON(w, map[string]string{"error": "invalid_grant"})
			return
		}

		claims := map[string]interface{}{
			"iss": s.Issuer(),
			"sub": "test-subject",
			"aud": clientID,
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(5 * time.Minute).Unix(),
		}
		if nonce != "" {
			claims["nonce"] = nonce
		}
		for k, v := range custom {
			claims[k] = v
		}
		idToken := s.SignClaims(claims)

		s.writeJSON(w, map[string]interface{}{
			"access_token": idToken,
			"id_token":     idToken,
			"token_type":   "Bearer",
			"expires_in":   300,
		})

	case "client_credentials":
		if req.FormValue("client_assertion_type") != "urn:ietf:params:oauth:client-assertion-type:jwt-bearer" ||
			req.FormValue("client_assertion") == "" {
			w.WriteHeader(http.StatusBadRequest)
			s.writeJSON(w, map[string]string{"error": "invalid_client"})
			return
		}
		scope := req.FormValue("scope")
		appID := strings.TrimSuffix(scope, "/.default")

		s.mu.Lock()
		custom := s.customClaims
		s.mu.Unlock()

		claims := map[string]interface{}{
			"iss": s.Issuer(),
			"sub": "test-workload",
			"aud": appID,
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(5 * time.Minute).Unix(),
		}
		for k, v := range custom {
			claims[k] = v
		}

		s.writeJSON(w, map[string]interface{}{
			"access_token": s.SignClaims(claims),
			"token_type":   "Bearer",
			"expires_in":   300,
		})

	default:
		w.WriteHeader(http.StatusBadRequest)
		s.writeJSON(w, map[string]string{"error": "unsupported_grant_type"})
	}
}
