// Package config loads and validates the process configuration from the
// environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/ilyakaznacheev/cleanenv"

	"github.com/entraguard/entraguard/bearer"
)

var (
	// ErrMissingTenantID is returned when TENANT_ID is not set.
	ErrMissingTenantID = errors.New("TENANT_ID is required")

	// ErrMissingAppID is returned when APP_ID is not set.
	ErrMissingAppID = errors.New("APP_ID is required")

	// ErrIncompleteFlow is returned when the login flow is only partially
	// configured.
	ErrIncompleteFlow = errors.New("CLIENT_ID and REDIRECT_URL must be set together")
)

// RedactedSecret replaces secret values in string and JSON output.
const RedactedSecret = "[REDACTED: client secret]"

// Secret is a client secret that never prints.
type Secret string

// String will redact the secret.
func (s Secret) String() string {
	return RedactedSecret
}

// MarshalJSON will redact the secret.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedSecret)
}

// Config is the full process configuration. TenantID and AppID are the only
// required fields; the login-flow fields are optional and gate the browser
// routes.
type Config struct {
	TenantID string `env:"TENANT_ID"`
	AppID    string `env:"APP_ID"`

	AllowedClientIDs    []string      `env:"ALLOWED_CLIENT_IDS"`
	AllowEmptyAllowList bool          `env:"ALLOW_EMPTY_ALLOWLIST" env-default:"false"`
	AcceptedIssuers     []string      `env:"ACCEPTED_ISSUERS"`
	JWKSTTL             time.Duration `env:"JWKS_TTL" env-default:"15m"`

	ListenAddr string `env:"LISTEN_ADDR" env-default:":8080"`
	LogLevel   string `env:"LOG_LEVEL" env-default:"info"`

	ClientID     string `env:"CLIENT_ID"`
	ClientSecret Secret `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	const op = "config.Load"
	var c Config
	if err := cleanenv.ReadEnv(&c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// Validate reports every configuration problem at once rather than the
// first one found.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.TenantID == "" {
		result = multierror.Append(result, ErrMissingTenantID)
	}
	if c.AppID == "" {
		result = multierror.Append(result, ErrMissingAppID)
	}
	if (c.ClientID == "") != (c.RedirectURL == "") {
		result = multierror.Append(result, ErrIncompleteFlow)
	}
	return result.ErrorOrNil()
}

// AllowList builds the caller allow-list from the configured ids.
func (c *Config) AllowList() bearer.AllowList {
	return bearer.NewAllowList(c.AllowedClientIDs, c.AllowEmptyAllowList)
}

// FlowEnabled reports whether the browser login routes should be mounted.
func (c *Config) FlowEnabled() bool {
	return c.ClientID != "" && c.RedirectURL != ""
}

// HCLogLevel maps the configured level onto hclog, defaulting to info for
// unknown values.
func (c *Config) HCLogLevel() hclog.Level {
	level := hclog.LevelFromString(c.LogLevel)
	if level == hclog.NoLevel {
		return hclog.Info
	}
	return level
}
