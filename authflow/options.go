package authflow

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

type flowOptions struct {
	withBaseURL    string
	withHTTPClient *http.Client
	withScopes     []string
	withRequestTTL time.Duration
	withLogger     hclog.Logger
}

func flowDefaults() flowOptions {
	return flowOptions{
		withBaseURL:    DefaultBaseURL,
		withScopes:     []string{"openid", "profile", "email"},
		withRequestTTL: DefaultRequestTTL,
		withLogger:     hclog.NewNullLogger(),
	}
}

func getFlowOpts(opt ...Option) flowOptions {
	opts := flowDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithBaseURL points discovery at a different authority origin. Used in
// tests to target an in-process server.
func WithBaseURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok && u != "" {
			o.withBaseURL = u
		}
	}
}

// WithHTTPClient provides the http.Client used for discovery, key fetches,
// and the code exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithScopes replaces the default openid/profile/email scope set.
func WithScopes(scopes []string) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok && len(scopes) > 0 {
			o.withScopes = scopes
		}
	}
}

// WithRequestTTL bounds how long a pending authentication request stays
// redeemable.
func WithRequestTTL(ttl time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok && ttl > 0 {
			o.withRequestTTL = ttl
		}
	}
}

// WithLogger provides a logger for flow diagnostics. Tokens never appear in
// log output.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*flowOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
