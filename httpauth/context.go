package httpauth

import (
	"context"

	"github.com/entraguard/entraguard/bearer"
)

type claimsContextKey struct{}
type identityContextKey struct{}
type verdictContextKey struct{}

// ClaimsFromContext returns the verified claims stored by RequireToken.
func ClaimsFromContext(ctx context.Context) (*bearer.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*bearer.Claims)
	return c, ok
}

// IdentityFromContext returns the caller identity stored by RequireToken.
func IdentityFromContext(ctx context.Context) (bearer.CallerIdentity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(bearer.CallerIdentity)
	return id, ok
}

// VerdictFromContext returns the authorization verdict stored by
// RequireToken.
func VerdictFromContext(ctx context.Context) (bearer.Verdict, bool) {
	v, ok := ctx.Value(verdictContextKey{}).(bearer.Verdict)
	return v, ok
}

func newRequestContext(ctx context.Context, claims *bearer.Claims, identity bearer.CallerIdentity, verdict bearer.Verdict) context.Context {
	ctx = context.WithValue(ctx, claimsContextKey{}, claims)
	ctx = context.WithValue(ctx, identityContextKey{}, identity)
	ctx = context.WithValue(ctx, verdictContextKey{}, verdict)
	return ctx
}
