package assertion

import (
	"net/http"
	"time"
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

type jwtOptions struct {
	withKeyID string
	withNow   func() time.Time
}

func getJWTOpts(opt ...Option) jwtOptions {
	opts := jwtOptions{
		withNow: time.Now,
	}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithKeyID sets the kid header on the assertion so the authorization
// server can look up the registered public key.
func WithKeyID(keyID string) Option {
	return func(o interface{}) {
		if o, ok := o.(*jwtOptions); ok {
			o.withKeyID = keyID
		}
	}
}

// WithNow overrides the clock used for iat/nbf/exp claims in tests.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*jwtOptions); ok && now != nil {
			o.withNow = now
		}
	}
}

type tokenSourceOptions struct {
	withBaseURL    string
	withHTTPClient *http.Client
}

func getTokenSourceOpts(opt ...Option) tokenSourceOptions {
	opts := tokenSourceOptions{
		withBaseURL: DefaultBaseURL,
	}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithBaseURL points the token endpoint at a different authority origin.
// Used in tests to target an in-process server.
func WithBaseURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenSourceOptions); ok && u != "" {
			o.withBaseURL = u
		}
	}
}

// WithHTTPClient provides the http.Client used for the token exchange.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*tokenSourceOptions); ok {
			o.withHTTPClient = c
		}
	}
}
