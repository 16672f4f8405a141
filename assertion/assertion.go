// Package assertion implements the secretless client-credentials path. A
// caller authenticates to the token endpoint with a signed JWT or a
// platform-issued workload identity token instead of a static client
// secret, then exchanges it for an access token scoped to a target
// application.
package assertion

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/hashicorp/go-uuid"
)

const (
	// TypeJWTBearer is the client_assertion_type value for JWT assertions.
	// https://www.rfc-editor.org/rfc/rfc7523.html#section-2.2
	TypeJWTBearer = "urn:ietf:params:oauth:client-assertion-type:jwt-bearer"

	// ExchangeAudience is the audience a workload identity token must carry
	// to be accepted as a federated credential by Entra ID.
	ExchangeAudience = "api://AzureADTokenExchange"

	assertionLifetime = 5 * time.Minute
)

// Provider supplies the client_assertion value for a token request. A fresh
// assertion is requested per exchange so short-lived credentials stay valid.
type Provider interface {
	ClientAssertion(ctx context.Context) (string, error)
}

// JWT builds private_key_jwt client assertions signed with an RSA key
// registered for the client application.
type JWT struct {
	clientID string
	audience []string
	key      *rsa.PrivateKey
	keyID    string

	genID func() (string, error)
	now   func() time.Time
}

// NewJWT creates an assertion builder for the given client and audience
// list. The key must be the private half of a credential registered with
// the authorization server.
//
// Supported options: WithKeyID, WithNow.
func NewJWT(clientID string, key *rsa.PrivateKey, audience []string, opt ...Option) (*JWT, error) {
	const op = "assertion.NewJWT"
	if clientID == "" {
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if key == nil {
		return nil, fmt.Errorf("%s: private key is nil: %w", op, ErrInvalidParameter)
	}
	if len(audience) == 0 {
		return nil, fmt.Errorf("%s: audience is empty: %w", op, ErrInvalidParameter)
	}
	opts := getJWTOpts(opt...)
	j := &JWT{
		clientID: clientID,
		audience: audience,
		key:      key,
		keyID:    opts.withKeyID,
		genID:    uuid.GenerateUUID,
		now:      opts.withNow,
	}
	// fail construction rather than the first exchange
	if _, err := j.ClientAssertion(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return j, nil
}

// ClientAssertion signs and serializes a fresh assertion. Each call produces
// a new jti and expiry window.
func (j *JWT) ClientAssertion(_ context.Context) (string, error) {
	const op = "assertion.(JWT).ClientAssertion"
	sKey := jose.SigningKey{Algorithm: jose.RS256, Key: j.key}
	sOpts := (&jose.SignerOptions{}).WithType("JWT")
	if j.keyID != "" {
		sOpts.ExtraHeaders["kid"] = j.keyID
	}
	signer, err := jose.NewSigner(sKey, sOpts)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrSigningFailed, err)
	}

	id, err := j.genID()
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate token id: %w", op, err)
	}
	now := j.now().UTC()
	claims := &jwt.Claims{
		Issuer:    j.clientID,
		Subject:   j.clientID,
		Audience:  j.audience,
		Expiry:    jwt.NewNumericDate(now.Add(assertionLifetime)),
		NotBefore: jwt.NewNumericDate(now.Add(-1 * time.Second)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id,
	}

	token, err := jwt.Signed(signer).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", op, ErrSigningFailed, err)
	}
	return token, nil
}

// FederatedToken adapts a workload identity token callback into a Provider.
// The platform token is presented to the token endpoint as-is; the issuing
// platform already signed it, so no local key material is involved.
type FederatedToken func(ctx context.Context) (string, error)

// ClientAssertion returns the current workload identity token.
func (f FederatedToken) ClientAssertion(ctx context.Context) (string, error) {
	const op = "assertion.(FederatedToken).ClientAssertion"
	if f == nil {
		return "", fmt.Errorf("%s: token callback is nil: %w", op, ErrInvalidParameter)
	}
	token, err := f(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if token == "" {
		return "", fmt.Errorf("%s: token callback returned an empty token: %w", op, ErrInvalidParameter)
	}
	return token, nil
}
