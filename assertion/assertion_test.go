package assertion_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraguard/entraguard/assertion"
	"github.com/entraguard/entraguard/ststest"
)

const (
	testTenantID = "11111111-2222-3333-4444-555555555555"
	testClientID = "cccccccc-0000-1111-2222-333333333333"
	testAppID    = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
)

func TestNewJWT(t *testing.T) {
	key := ststest.GenerateKey(t)

	tests := []struct {
		name     string
		clientID string
		audience []string
		wantErr  bool
	}{
		{name: "valid", clientID: testClientID, audience: []string{assertion.ExchangeAudience}},
		{name: "missing-client-id", clientID: "", audience: []string{assertion.ExchangeAudience}, wantErr: true},
		{name: "missing-audience", clientID: testClientID, audience: nil, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := assertion.NewJWT(tt.clientID, key, tt.audience)
			if tt.wantErr {
				require.ErrorIs(t, err, assertion.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, j)
		})
	}

	t.Run("nil-key", func(t *testing.T) {
		_, err := assertion.NewJWT(testClientID, nil, []string{assertion.ExchangeAudience})
		require.ErrorIs(t, err, assertion.ErrInvalidParameter)
	})
}

func TestJWT_ClientAssertion(t *testing.T) {
	key := ststest.GenerateKey(t)
	now := time.Now().UTC().Truncate(time.Second)

	j, err := assertion.NewJWT(testClientID, key, []string{assertion.ExchangeAudience},
		assertion.WithKeyID("reg-key-1"),
		assertion.WithNow(func() time.Time { return now }),
	)
	require.NoError(t, err)

	raw, err := j.ClientAssertion(context.Background())
	require.NoError(t, err)

	parsed, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.RS256})
	require.NoError(t, err)
	require.Len(t, parsed.Headers, 1)
	assert.Equal(t, "reg-key-1", parsed.Headers[0].KeyID)

	var claims jwt.Claims
	require.NoError(t, parsed.Claims(key.Public(), &claims))
	assert.Equal(t, testClientID, claims.Issuer)
	assert.Equal(t, testClientID, claims.Subject)
	assert.Equal(t, jwt.Audience{assertion.ExchangeAudience}, claims.Audience)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, now, claims.IssuedAt.Time())
	assert.Equal(t, now.Add(5*time.Minute), claims.Expiry.Time())

	// a second assertion gets a new jti
	raw2, err := j.ClientAssertion(context.Background())
	require.NoError(t, err)
	parsed2, err := jwt.ParseSigned(raw2, []jose.SignatureAlgorithm{jose.RS256})
	require.NoError(t, err)
	var claims2 jwt.Claims
	require.NoError(t, parsed2.Claims(key.Public(), &claims2))
	assert.NotEqual(t, claims.ID, claims2.ID)
}

func TestFederatedToken(t *testing.T) {
	ctx := context.Background()

	t.Run("passthrough", func(t *testing.T) {
		f := assertion.FederatedToken(func(context.Context) (string, error) {
			return "platform-token", nil
		})
		got, err := f.ClientAssertion(ctx)
		require.NoError(t, err)
		assert.Equal(t, "platform-token", got)
	})

	t.Run("callback-error", func(t *testing.T) {
		boom := errors.New("metadata service unreachable")
		f := assertion.FederatedToken(func(context.Context) (string, error) {
			return "", boom
		})
		_, err := f.ClientAssertion(ctx)
		require.ErrorIs(t, err, boom)
	})

	t.Run("empty-token", func(t *testing.T) {
		f := assertion.FederatedToken(func(context.Context) (string, error) {
			return "", nil
		})
		_, err := f.ClientAssertion(ctx)
		require.ErrorIs(t, err, assertion.ErrInvalidParameter)
	})

	t.Run("nil-callback", func(t *testing.T) {
		var f assertion.FederatedToken
		_, err := f.ClientAssertion(ctx)
		require.ErrorIs(t, err, assertion.ErrInvalidParameter)
	})
}

func TestNewTokenSource(t *testing.T) {
	provider := assertion.FederatedToken(func(context.Context) (string, error) {
		return "platform-token", nil
	})

	tests := []struct {
		name     string
		tenantID string
		clientID string
		appID    string
		provider assertion.Provider
	}{
		{name: "missing-tenant", clientID: testClientID, appID: testAppID, provider: provider},
		{name: "missing-client", tenantID: testTenantID, appID: testAppID, provider: provider},
		{name: "missing-app", tenantID: testTenantID, clientID: testClientID, provider: provider},
		{name: "nil-provider", tenantID: testTenantID, clientID: testClientID, appID: testAppID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := assertion.NewTokenSource(context.Background(), tt.tenantID, tt.clientID, tt.appID, tt.provider)
			require.ErrorIs(t, err, assertion.ErrInvalidParameter)
		})
	}
}

func TestTokenSource_Exchange(t *testing.T) {
	sts := ststest.Start(t, testTenantID)
	key := ststest.GenerateKey(t)

	j, err := assertion.NewJWT(testClientID, key, []string{assertion.ExchangeAudience})
	require.NoError(t, err)

	ts, err := assertion.NewTokenSource(context.Background(),
		testTenantID, testClientID, testAppID, j,
		assertion.WithBaseURL(sts.Addr()),
	)
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.True(t, token.Expiry.After(time.Now()))

	// scope gets trimmed back to the bare app id for the aud claim
	parsed, err := jwt.ParseSigned(token.AccessToken, []jose.SignatureAlgorithm{jose.RS256})
	require.NoError(t, err)
	var claims jwt.Claims
	require.NoError(t, parsed.UnsafeClaimsWithoutVerification(&claims))
	assert.Equal(t, jwt.Audience{testAppID}, claims.Audience)

	// still fresh, so the cached token comes back
	again, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, token.AccessToken, again.AccessToken)
}

func TestTokenSource_ExchangeRejected(t *testing.T) {
	sts := ststest.Start(t, testTenantID)

	// an empty assertion never reaches the wire; fail at the provider instead
	bad := assertion.FederatedToken(func(context.Context) (string, error) {
		return "", fmt.Errorf("no workload token mounted")
	})
	ts, err := assertion.NewTokenSource(context.Background(),
		testTenantID, testClientID, testAppID, bad,
		assertion.WithBaseURL(sts.Addr()),
	)
	require.NoError(t, err)

	_, err = ts.Token()
	require.Error(t, err)
	assert.Equal(t, int64(0), sts.KeysFetchCount())
}
