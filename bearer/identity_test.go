package bearer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func claimsFrom(m map[string]interface{}) *Claims {
	return &Claims{m: m}
}

func TestResolveIdentity_Precedence(t *testing.T) {
	tests := []struct {
		name          string
		claims        map[string]interface{}
		wantClientID  string
		wantClaimUsed string
		wantType      CallerType
	}{
		{
			name:          "appid-beats-oid",
			claims:        map[string]interface{}{"appid": "svc1", "oid": "user1"},
			wantClientID:  "svc1",
			wantClaimUsed: "appid",
			wantType:      CallerTypeServicePrincipal,
		},
		{
			name:          "azp-beats-oid",
			claims:        map[string]interface{}{"azp": "mi-1", "oid": "user1"},
			wantClientID:  "mi-1",
			wantClaimUsed: "azp",
			wantType:      CallerTypeUser, // no appid, oid present
		},
		{
			name:          "appid-beats-azp",
			claims:        map[string]interface{}{"appid": "svc1", "azp": "mi-1"},
			wantClientID:  "svc1",
			wantClaimUsed: "appid",
			wantType:      CallerTypeServicePrincipal,
		},
		{
			name:          "oid-fallback",
			claims:        map[string]interface{}{"oid": "user1"},
			wantClientID:  "user1",
			wantClaimUsed: "oid",
			wantType:      CallerTypeUser,
		},
		{
			name:          "no-identity-claims",
			claims:        map[string]interface{}{"sub": "subject-only"},
			wantClientID:  "",
			wantClaimUsed: "",
			wantType:      CallerTypeUnknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveIdentity(claimsFrom(tt.claims))
			assert.Equal(t, tt.wantClientID, got.ClientID)
			assert.Equal(t, tt.wantClaimUsed, got.ClaimUsed)
			assert.Equal(t, tt.wantType, got.Type)
		})
	}
}

func TestResolveIdentity_ConfiguredIdentities(t *testing.T) {
	t.Run("vm-identity", func(t *testing.T) {
		got := ResolveIdentity(
			claimsFrom(map[string]interface{}{"azp": "vm-client-1"}),
			WithVMIdentity("vm-client-1"),
		)
		assert.Equal(t, CallerTypeVMManagedIdentity, got.Type)
	})
	t.Run("test-identity", func(t *testing.T) {
		got := ResolveIdentity(
			claimsFrom(map[string]interface{}{"oid": "test-sp-1"}),
			WithTestIdentity("test-sp-1"),
		)
		assert.Equal(t, CallerTypeServicePrincipal, got.Type)
	})
	t.Run("vm-identity-beats-appid-classification", func(t *testing.T) {
		got := ResolveIdentity(
			claimsFrom(map[string]interface{}{"appid": "vm-client-1"}),
			WithVMIdentity("vm-client-1"),
		)
		assert.Equal(t, CallerTypeVMManagedIdentity, got.Type)
	})
}

func TestResolveIdentity_Idempotent(t *testing.T) {
	claims := claimsFrom(map[string]interface{}{
		"appid": "svc1",
		"azp":   "mi-1",
		"oid":   "user1",
		"sub":   "subject",
	})
	first := ResolveIdentity(claims)
	second := ResolveIdentity(claims)
	assert.Equal(t, first, second)
}

func TestResolveIdentity_RawReferences(t *testing.T) {
	got := ResolveIdentity(claimsFrom(map[string]interface{}{
		"appid": "svc1",
		"azp":   "mi-1",
		"oid":   "user1",
		"sub":   "subject",
	}))
	assert.Equal(t, "svc1", got.AppID)
	assert.Equal(t, "mi-1", got.AuthorizedParty)
	assert.Equal(t, "user1", got.ObjectID)
	assert.Equal(t, "subject", got.Subject)
}
