package assertion

import (
	"context"
	"fmt"
	"net/url"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the Entra ID authority origin.
const DefaultBaseURL = "https://login.microsoftonline.com"

const tokenPath = "/%s/oauth2/v2.0/token"

// NewTokenSource returns an oauth2.TokenSource performing the
// client-credentials grant for the target application, authenticating with
// a client assertion instead of a client secret. Tokens are cached and only
// re-exchanged once expired.
//
// The requested scope is "{resourceAppID}/.default", which asks for every
// application permission granted to the client.
//
// Supported options: WithBaseURL, WithHTTPClient.
func NewTokenSource(ctx context.Context, tenantID, clientID, resourceAppID string, provider Provider, opt ...Option) (oauth2.TokenSource, error) {
	const op = "assertion.NewTokenSource"
	switch {
	case tenantID == "":
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	case clientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case resourceAppID == "":
		return nil, fmt.Errorf("%s: resource app id is empty: %w", op, ErrInvalidParameter)
	case provider == nil:
		return nil, fmt.Errorf("%s: assertion provider is nil: %w", op, ErrInvalidParameter)
	}
	opts := getTokenSourceOpts(opt...)
	if opts.withHTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.withHTTPClient)
	}
	ts := &tokenSource{
		ctx:      ctx,
		tokenURL: opts.withBaseURL + fmt.Sprintf(tokenPath, tenantID),
		clientID: clientID,
		scopes:   []string{resourceAppID + "/.default"},
		provider: provider,
	}
	return oauth2.ReuseTokenSource(nil, ts), nil
}

type tokenSource struct {
	ctx      context.Context
	tokenURL string
	clientID string
	scopes   []string
	provider Provider
}

// Token generates a fresh assertion and runs the exchange. Callers normally
// see this through ReuseTokenSource, so it only fires when the cached token
// has expired.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	const op = "assertion.(tokenSource).Token"
	a, err := s.provider.ClientAssertion(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg := &clientcredentials.Config{
		ClientID:  s.clientID,
		TokenURL:  s.tokenURL,
		Scopes:    s.scopes,
		AuthStyle: oauth2.AuthStyleInParams,
		EndpointParams: url.Values{
			"client_assertion_type": {TypeJWTBearer},
			"client_assertion":      {a},
		},
	}
	token, err := cfg.Token(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExchangeFailed, err)
	}
	return token, nil
}
