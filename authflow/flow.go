// Package authflow drives the browser login side of the system: issuing
// the authorization redirect, redeeming the callback code for tokens, and
// building the end-session URL. Pending requests are tracked in a
// RequestCache so each state is single-use, and redeemed tokens can be held
// in a TokenCache that refreshes them as they expire.
package authflow

import (
	"context"
	"fmt"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/entraguard/entraguard/sdk/id"
)

// DefaultBaseURL is the Entra ID authority origin.
const DefaultBaseURL = "https://login.microsoftonline.com"

// Flow performs the authorization-code login against a tenant's v2.0
// endpoints, discovered once at construction.
type Flow struct {
	tenantID    string
	clientID    string
	redirectURL string

	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauthCfg oauth2.Config
	requests *RequestCache
	logger   hclog.Logger

	endSessionEndpoint string
}

// Session is the outcome of a redeemed login.
type Session struct {
	// Token carries the access token and, when granted, the refresh token.
	Token *oauth2.Token

	// RawIDToken is the serialized id_token as received.
	RawIDToken string

	// Subject is the verified sub claim.
	Subject string

	// Claims holds the full verified id_token claim set.
	Claims map[string]interface{}
}

// NewFlow discovers the tenant's endpoints and returns a ready flow. The
// client secret may be empty when the application is public.
//
// Supported options: WithBaseURL, WithHTTPClient, WithScopes,
// WithRequestTTL, WithLogger.
func NewFlow(ctx context.Context, tenantID, clientID, clientSecret, redirectURL string, opt ...Option) (*Flow, error) {
	const op = "authflow.NewFlow"
	switch {
	case tenantID == "":
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	case clientID == "":
		return nil, fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	case redirectURL == "":
		return nil, fmt.Errorf("%s: redirect url is empty: %w", op, ErrInvalidParameter)
	}
	opts := getFlowOpts(opt...)
	if opts.withHTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.withHTTPClient)
	}

	issuer := fmt.Sprintf("%s/%s/v2.0", opts.withBaseURL, tenantID)
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("%s: discovery for issuer %q failed: %w", op, issuer, err)
	}

	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	// optional in the metadata; Logout degrades gracefully without it
	_ = provider.Claims(&extra)

	f := &Flow{
		tenantID:    tenantID,
		clientID:    clientID,
		redirectURL: redirectURL,
		provider:    provider,
		verifier:    provider.Verifier(&oidc.Config{ClientID: clientID}),
		oauthCfg: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       opts.withScopes,
		},
		requests:           NewRequestCache(opts.withRequestTTL),
		logger:             opts.withLogger,
		endSessionEndpoint: extra.EndSessionEndpoint,
	}
	return f, nil
}

// AuthURL creates a pending request and returns the authorization redirect
// for it. The returned state identifies the request at callback time; the
// nonce travels inside the id_token and is checked during Exchange.
func (f *Flow) AuthURL() (authURL string, state string, err error) {
	const op = "authflow.(Flow).AuthURL"
	state, err = id.New("st")
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	nonce, err := id.New("n")
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if err := f.requests.Add(Request{State: state, Nonce: nonce}); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	f.logger.Debug("issued authentication request", "state", state)
	return f.oauthCfg.AuthCodeURL(state, oidc.Nonce(nonce)), state, nil
}

// Exchange redeems an authorization code. The state must identify a live
// pending request, the token response must carry an id_token that verifies
// against the tenant's keys, and the id_token nonce must match the request.
func (f *Flow) Exchange(ctx context.Context, state, code string) (*Session, error) {
	const op = "authflow.(Flow).Exchange"
	if code == "" {
		return nil, fmt.Errorf("%s: code is empty: %w", op, ErrInvalidParameter)
	}
	req, err := f.requests.Take(state)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	token, err := f.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExchangeFailed, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}
	idToken, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s: id_token verification failed: %w", op, err)
	}
	if idToken.Nonce != req.Nonce {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidNonce)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s: failed to decode id_token claims: %w", op, err)
	}

	f.logger.Debug("redeemed authentication request", "state", state, "sub", idToken.Subject)
	return &Session{
		Token:      token,
		RawIDToken: rawIDToken,
		Subject:    idToken.Subject,
		Claims:     claims,
	}, nil
}

// TokenSource returns a source that refreshes the session's token as it
// expires, suitable for a TokenCache entry.
func (f *Flow) TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource {
	return f.oauthCfg.TokenSource(ctx, t)
}

// LogoutURL builds the end-session redirect. postLogoutRedirect may be
// empty; when the provider metadata carries no end-session endpoint the
// empty string is returned and the caller should clear local session state
// only.
func (f *Flow) LogoutURL(postLogoutRedirect string) string {
	if f.endSessionEndpoint == "" {
		return ""
	}
	if postLogoutRedirect == "" {
		return f.endSessionEndpoint
	}
	return f.endSessionEndpoint + "?post_logout_redirect_uri=" + url.QueryEscape(postLogoutRedirect)
}
