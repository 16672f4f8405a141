package bearer

import (
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

type verifierOptions struct {
	withAcceptedIssuers []string
	withAudiences       []string
	withLogger          hclog.Logger
}

func verifierDefaults() verifierOptions {
	return verifierOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithAcceptedIssuers overrides the accepted-issuer set derived from the
// tenant id. Deployments vary between single-issuer and multi-issuer
// strictness, so the set is configurable rather than hardcoded.
func WithAcceptedIssuers(issuers []string) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifierOptions); ok {
			o.withAcceptedIssuers = issuers
		}
	}
}

// WithAudiences overrides the ordered audience trial list derived from the
// application id. Entries are attempted in order and the first exact match
// wins.
func WithAudiences(audiences []string) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifierOptions); ok {
			o.withAudiences = audiences
		}
	}
}

// WithLogger provides a logger for verification diagnostics. Raw tokens and
// signing keys are never logged.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		switch v := o.(type) {
		case *verifierOptions:
			if l != nil {
				v.withLogger = l
			}
		}
	}
}

type identityOptions struct {
	withVMIdentity   string
	withTestIdentity string
}

func getIdentityOpts(opt ...Option) identityOptions {
	opts := identityOptions{}
	ApplyOpts(&opts, opt...)
	return opts
}

// WithVMIdentity names the client id of the VM managed identity so the
// caller type can be classified for observability.
func WithVMIdentity(clientID string) Option {
	return func(o interface{}) {
		if o, ok := o.(*identityOptions); ok {
			o.withVMIdentity = clientID
		}
	}
}

// WithTestIdentity names the client id of the test service principal.
func WithTestIdentity(clientID string) Option {
	return func(o interface{}) {
		if o, ok := o.(*identityOptions); ok {
			o.withTestIdentity = clientID
		}
	}
}
