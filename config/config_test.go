package config_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entraguard/entraguard/config"
)

const (
	testTenantID = "11111111-2222-3333-4444-555555555555"
	testAppID    = "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TENANT_ID", testTenantID)
	t.Setenv("APP_ID", testAppID)
}

func TestLoad(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_CLIENT_IDS", "vm-id-1,test-id-2")
	t.Setenv("JWKS_TTL", "30m")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, testTenantID, c.TenantID)
	assert.Equal(t, testAppID, c.AppID)
	assert.Equal(t, []string{"vm-id-1", "test-id-2"}, c.AllowedClientIDs)
	assert.Equal(t, 30*time.Minute, c.JWKSTTL)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, hclog.Debug, c.HCLogLevel())
	assert.False(t, c.FlowEnabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TENANT_ID", "")
	t.Setenv("APP_ID", "")

	_, err := config.Load()
	require.Error(t, err)
	// both problems are reported together
	assert.ErrorIs(t, err, config.ErrMissingTenantID)
	assert.ErrorIs(t, err, config.ErrMissingAppID)
}

func TestLoad_IncompleteFlow(t *testing.T) {
	setRequired(t)
	t.Setenv("CLIENT_ID", "web-client")
	t.Setenv("REDIRECT_URL", "")

	_, err := config.Load()
	require.ErrorIs(t, err, config.ErrIncompleteFlow)
}

func TestConfig_FlowEnabled(t *testing.T) {
	setRequired(t)
	t.Setenv("CLIENT_ID", "web-client")
	t.Setenv("CLIENT_SECRET", "hunter2")
	t.Setenv("REDIRECT_URL", "http://localhost:8080/auth/callback")

	c, err := config.Load()
	require.NoError(t, err)
	assert.True(t, c.FlowEnabled())
	assert.Equal(t, "hunter2", string(c.ClientSecret))
}

func TestConfig_AllowList(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_CLIENT_IDS", " vm-id-1 , ,test-id-2")

	c, err := config.Load()
	require.NoError(t, err)
	list := c.AllowList()
	assert.Equal(t, []string{"vm-id-1", "test-id-2"}, list.IDs)
	assert.False(t, list.AllowEmpty)
}

func TestSecret_Redaction(t *testing.T) {
	s := config.Secret("hunter2")
	assert.Equal(t, config.RedactedSecret, s.String())
	assert.Equal(t, config.RedactedSecret, fmt.Sprintf("%s", s))

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, fmt.Sprintf("%q", config.RedactedSecret), string(out))
}

func TestConfig_HCLogLevel(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_LEVEL", "not-a-level")

	c, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, hclog.Info, c.HCLogLevel())
}
