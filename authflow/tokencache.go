package authflow

import (
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// TokenCache holds one refreshing token source per session. The underlying
// oauth2 source re-exchanges the refresh token transparently once the
// cached access token has expired, so reads always yield a live token.
type TokenCache struct {
	mu      sync.RWMutex
	sources map[string]oauth2.TokenSource
}

// NewTokenCache creates an empty cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{sources: make(map[string]oauth2.TokenSource)}
}

// Put stores the token source for a session, replacing any previous one.
func (c *TokenCache) Put(sessionID string, src oauth2.TokenSource) error {
	const op = "authflow.(TokenCache).Put"
	if sessionID == "" {
		return fmt.Errorf("%s: session id is empty: %w", op, ErrInvalidParameter)
	}
	if src == nil {
		return fmt.Errorf("%s: token source is nil: %w", op, ErrInvalidParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[sessionID] = src
	return nil
}

// Token returns a valid token for the session, refreshing if needed.
func (c *TokenCache) Token(sessionID string) (*oauth2.Token, error) {
	const op = "authflow.(TokenCache).Token"
	c.mu.RLock()
	src, ok := c.sources[sessionID]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", op, sessionID, ErrNoSession)
	}
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Delete removes the session's token source. Deleting an unknown session is
// a no-op.
func (c *TokenCache) Delete(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, sessionID)
}
