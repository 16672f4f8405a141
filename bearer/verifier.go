package bearer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entraguard/entraguard/keyset"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-hclog"
)

// parseAlgs is the set of algorithms a token is allowed to declare for
// parsing purposes only. Verification still accepts RS256 alone; the broad
// list lets a token signed with anything else be classified as
// ErrUnsupportedAlgorithm instead of ErrMalformedToken.
var parseAlgs = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.PS256, jose.PS384, jose.PS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.HS256, jose.HS384, jose.HS512,
	jose.EdDSA,
}

// DefaultAcceptedIssuers returns the issuer strings a tenant's tokens may
// legitimately carry: the v1 sts.windows.net form plus the
// login.microsoftonline.com v2.0 and non-v2 variants.
func DefaultAcceptedIssuers(tenantID string) []string {
	return []string{
		fmt.Sprintf("https://sts.windows.net/%s/", tenantID),
		fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", tenantID),
		fmt.Sprintf("https://login.microsoftonline.com/%s/", tenantID),
	}
}

// DefaultAudiences returns the ordered audience trial list for an
// application id: the Application ID URI form, the bare id, then the
// client-credentials .default form. The order reflects real-world token
// issuance variance and is preserved for compatibility.
func DefaultAudiences(appID string) []string {
	return []string{
		"api://" + appID,
		appID,
		appID + "/.default",
	}
}

// Verifier verifies raw bearer tokens for a single tenant and application.
// It is safe for concurrent use; the only shared mutable state is the
// key set cache it holds a handle to.
type Verifier struct {
	keys            *keyset.Cache
	tenantID        string
	acceptedIssuers []string
	audiences       []string
	logger          hclog.Logger
}

// NewVerifier creates a Verifier bound to the given key set cache, tenant,
// and application id.
//
// Supported options: WithAcceptedIssuers, WithAudiences, WithLogger.
func NewVerifier(keys *keyset.Cache, tenantID string, appID string, opt ...Option) (*Verifier, error) {
	const op = "bearer.NewVerifier"
	if keys == nil {
		return nil, fmt.Errorf("%s: key set cache is nil: %w", op, ErrInvalidParameter)
	}
	if tenantID == "" {
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	}
	if appID == "" {
		return nil, fmt.Errorf("%s: application id is empty: %w", op, ErrInvalidParameter)
	}
	opts := getVerifierOpts(opt...)
	issuers := opts.withAcceptedIssuers
	if len(issuers) == 0 {
		issuers = DefaultAcceptedIssuers(tenantID)
	}
	audiences := opts.withAudiences
	if len(audiences) == 0 {
		audiences = DefaultAudiences(appID)
	}
	return &Verifier{
		keys:            keys,
		tenantID:        tenantID,
		acceptedIssuers: issuers,
		audiences:       audiences,
		logger:          opts.withLogger,
	}, nil
}

// Verify parses and verifies a raw bearer token, returning its claims. The
// checks run in order, failing fast on the first violation: signature
// (RS256 only), expiration, issuer, then audience. Failures are typed; use
// errors.Is against the sentinels in errors.go.
func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	const op = "Verifier.Verify"
	if token == "" {
		return nil, fmt.Errorf("%s: token is empty: %w", op, ErrMalformedToken)
	}

	parsed, err := jwt.ParseSigned(token, parseAlgs)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to parse token: %w", op, ErrMalformedToken)
	}
	if len(parsed.Headers) != 1 {
		return nil, fmt.Errorf("%s: expected one signature: %w", op, ErrMalformedToken)
	}
	hdr := parsed.Headers[0]
	if hdr.Algorithm != string(jose.RS256) {
		v.logger.Warn("token declared unsupported algorithm", "alg", hdr.Algorithm)
		return nil, fmt.Errorf("%s: algorithm %q: %w", op, hdr.Algorithm, ErrUnsupportedAlgorithm)
	}
	if hdr.KeyID == "" {
		return nil, fmt.Errorf("%s: token header missing kid: %w", op, ErrMalformedToken)
	}

	key, err := v.resolveKey(ctx, hdr.KeyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	all := map[string]interface{}{}
	if err := parsed.Claims(key.Key, &all); err != nil {
		v.logger.Warn("token signature verification failed", "kid", hdr.KeyID)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}
	claims := &Claims{m: all}

	exp, ok := claims.Expiry()
	if !ok || !exp.After(time.Now()) {
		return nil, fmt.Errorf("%s: %w", op, ErrExpiredToken)
	}

	if !contains(v.acceptedIssuers, claims.Issuer()) {
		v.logger.Warn("token issuer not accepted", "issuer", claims.Issuer())
		return nil, fmt.Errorf("%s: issuer %q: %w", op, claims.Issuer(), ErrInvalidIssuer)
	}

	if !v.audienceMatches(claims.Audiences()) {
		return nil, fmt.Errorf("%s: %w", op, &InvalidAudienceError{
			ReceivedAudience:  claims.Audience(),
			ExpectedAudiences: v.audiences,
		})
	}

	return claims, nil
}

// resolveKey looks up the key for the kid, forcing a single cache refresh
// and retrying once on a miss to tolerate key rotation.
func (v *Verifier) resolveKey(ctx context.Context, kid string) (keyset.VerificationKey, error) {
	set, err := v.keys.Get(ctx, v.tenantID)
	if err != nil {
		return keyset.VerificationKey{}, err
	}
	key, err := set.ResolveKey(kid)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, keyset.ErrKeyNotFound) {
		return keyset.VerificationKey{}, err
	}

	v.logger.Info("kid not in cached key set, forcing refresh", "kid", kid)
	set, refreshErr := v.keys.Refresh(ctx, v.tenantID)
	if refreshErr != nil {
		return keyset.VerificationKey{}, refreshErr
	}
	return set.ResolveKey(kid)
}

// audienceMatches tries each configured audience in order against the
// token's aud claim and reports whether any entry matched exactly.
func (v *Verifier) audienceMatches(got []string) bool {
	for _, want := range v.audiences {
		if contains(got, want) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
