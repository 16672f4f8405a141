package httpauth

import (
	"github.com/entraguard/entraguard/bearer"
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

type middlewareOptions struct {
	withLogger      hclog.Logger
	withIdentityOpt []bearer.Option
}

func middlewareDefaults() middlewareOptions {
	return middlewareOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getMiddlewareOpts(opt ...Option) middlewareOptions {
	opts := middlewareDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides a logger for request diagnostics. Internal logs may
// carry more detail than response bodies; raw tokens are never logged.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*middlewareOptions); ok && l != nil {
			o.withLogger = l
		}
	}
}

// WithIdentityOptions passes options (bearer.WithVMIdentity,
// bearer.WithTestIdentity) through to identity resolution.
func WithIdentityOptions(opt ...bearer.Option) Option {
	return func(o interface{}) {
		if o, ok := o.(*middlewareOptions); ok {
			o.withIdentityOpt = opt
		}
	}
}
