package keyset

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

type cacheOptions struct {
	withBaseURL    string
	withHTTPClient *http.Client
	withCAPem      string
	withTTL        time.Duration
	withTimeout    time.Duration
	withLogger     hclog.Logger
}

func cacheDefaults() cacheOptions {
	return cacheOptions{
		withBaseURL: DefaultBaseURL,
		withTTL:     DefaultTTL,
		withLogger:  hclog.NewNullLogger(),
	}
}

func getCacheOpts(opt ...Option) cacheOptions {
	opts := cacheDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithBaseURL overrides the issuer host used to build the discovery keys URL.
// Useful for sovereign clouds and tests.
func WithBaseURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*cacheOptions); ok {
			o.withBaseURL = u
		}
	}
}

// WithHTTPClient provides the http client used to fetch key sets. When set,
// WithCAPem and WithTimeout are ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*cacheOptions); ok {
			o.withHTTPClient = c
		}
	}
}

// WithCAPem provides an optional CA cert PEM to use when fetching key sets.
func WithCAPem(pem string) Option {
	return func(o interface{}) {
		if o, ok := o.(*cacheOptions); ok {
			o.withCAPem = pem
		}
	}
}

// WithTTL overrides the DefaultTTL after which a cached key set is considered
// stale and refetched on the next Get.
func WithTTL(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*cacheOptions); ok {
			o.withTTL = d
		}
	}
}

// WithTimeout overrides the bounded timeout for a single key set fetch.
func WithTimeout(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*cacheOptions); ok {
			o.withTimeout = d
		}
	}
}

// WithLogger provides a logger for fetch diagnostics.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*cacheOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}
