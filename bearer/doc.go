// Package bearer implements the bearer-token validation pipeline: it
// verifies a raw access token's signature against a tenant's remote signing
// key set, checks expiration, issuer, and audience under the acceptance
// rules real token issuance produces, derives a caller identity from the
// verified claims with a fixed claim precedence, and authorizes the identity
// against a configured allow-list.
//
// The pipeline is usable outside any HTTP framework:
//
//	cache, _ := keyset.New()
//	v, _ := bearer.NewVerifier(cache, tenantID, appID)
//	claims, err := v.Verify(ctx, rawToken)
//	if err != nil { /* typed failure, see errors.go */ }
//	identity := bearer.ResolveIdentity(claims)
//	verdict := bearer.Authorize(identity, allowList)
package bearer
