// Package keyset fetches and caches the signing key sets published by an
// issuer's discovery keys endpoint, and resolves individual verification
// keys by key ID.
//
// A Cache is an explicit object intended to be owned by the service's
// composition root and passed by handle into the verification pipeline. Key
// sets are cached per tenant and replaced wholesale on refetch; concurrent
// in-flight fetches for the same tenant are deduplicated.
package keyset

import (
	"context"
	"crypto"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	sdkhttp "github.com/entraguard/entraguard/sdk/http"
	"github.com/go-jose/go-jose/v4"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the issuer host serving the discovery keys documents.
	DefaultBaseURL = "https://login.microsoftonline.com"

	// DefaultTTL is how long a cached key set is served before the next Get
	// triggers a refetch.
	DefaultTTL = 15 * time.Minute

	// keysPath is the well-known discovery document listing a tenant's
	// public signing keys.
	keysPath = "/%s/discovery/v2.0/keys"
)

// VerificationKey is a single key resolved from a tenant's key set, ready to
// hand to a signature verifier.
type VerificationKey struct {
	KeyID     string
	Algorithm string
	Key       crypto.PublicKey
}

// Set is an immutable snapshot of a tenant's signing key set. A Set is never
// mutated in place; the owning Cache replaces it wholesale on refetch.
type Set struct {
	keys      map[string]jose.JSONWebKey
	fetchedAt time.Time
}

// ResolveKey looks up the key with the given key ID. The match is exact;
// there is no default-key fallback. It returns ErrKeyNotFound when the key
// ID is absent, in which case the caller may force a Cache.Refresh and retry
// once to tolerate key rotation.
func (s *Set) ResolveKey(kid string) (VerificationKey, error) {
	if kid == "" {
		return VerificationKey{}, fmt.Errorf("keyset.ResolveKey: missing key id: %w", ErrInvalidParameter)
	}
	k, ok := s.keys[kid]
	if !ok {
		return VerificationKey{}, fmt.Errorf("keyset.ResolveKey: no key with id %q: %w", kid, ErrKeyNotFound)
	}
	return VerificationKey{
		KeyID:     k.KeyID,
		Algorithm: k.Algorithm,
		Key:       k.Key,
	}, nil
}

// Len returns the number of keys in the set.
func (s *Set) Len() int { return len(s.keys) }

// FetchedAt returns when the set was fetched from the origin.
func (s *Set) FetchedAt() time.Time { return s.fetchedAt }

// Cache fetches and memoizes signing key sets by tenant ID.
//
// It is safe for concurrent use: reads take a shared lock and a refetch
// replaces the stored *Set by pointer swap, so concurrent readers never
// observe a partially updated set.
type Cache struct {
	client  *http.Client
	baseURL string
	ttl     time.Duration
	logger  hclog.Logger

	mu   sync.RWMutex
	sets map[string]*Set

	// group dedupes in-flight fetches per tenant so a key-rotation storm
	// results in a single origin request.
	group singleflight.Group
}

// New creates a key set Cache.
//
// Supported options: WithBaseURL, WithHTTPClient, WithCAPem, WithTTL,
// WithTimeout, WithLogger.
func New(opt ...Option) (*Cache, error) {
	const op = "keyset.New"
	opts := getCacheOpts(opt...)
	if opts.withBaseURL == "" {
		return nil, fmt.Errorf("%s: base URL is empty: %w", op, ErrInvalidParameter)
	}
	client := opts.withHTTPClient
	if client == nil {
		var err error
		client, err = sdkhttp.NewClient(opts.withCAPem, opts.withTimeout)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	return &Cache{
		client:  client,
		baseURL: opts.withBaseURL,
		ttl:     opts.withTTL,
		logger:  opts.withLogger,
		sets:    map[string]*Set{},
	}, nil
}

// Get returns the key set for the tenant. A fresh cached set is returned
// without network access; a miss or a stale set triggers a fetch. When the
// fetch fails the call returns ErrFetchFailed and any previously cached set
// is retained for a later retry, but is not served by the failing call.
func (c *Cache) Get(ctx context.Context, tenantID string) (*Set, error) {
	const op = "Cache.Get"
	if tenantID == "" {
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	}

	c.mu.RLock()
	s, ok := c.sets[tenantID]
	c.mu.RUnlock()
	if ok && time.Since(s.fetchedAt) < c.ttl {
		return s, nil
	}

	return c.fetch(ctx, tenantID)
}

// Refresh forces a refetch of the tenant's key set, bypassing any cached
// entry. Used by callers that hit ErrKeyNotFound to tolerate key rotation.
func (c *Cache) Refresh(ctx context.Context, tenantID string) (*Set, error) {
	const op = "Cache.Refresh"
	if tenantID == "" {
		return nil, fmt.Errorf("%s: tenant id is empty: %w", op, ErrInvalidParameter)
	}
	return c.fetch(ctx, tenantID)
}

func (c *Cache) fetch(ctx context.Context, tenantID string) (*Set, error) {
	const op = "Cache.fetch"

	v, err, _ := c.group.Do(tenantID, func() (interface{}, error) {
		// The fetch is detached from the individual caller's cancellation so
		// that it either completes and stores the result or fails cleanly
		// for every waiter; the http client's timeout still bounds it.
		s, err := c.fetchKeys(context.WithoutCancel(ctx), tenantID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.sets[tenantID] = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v.(*Set), nil
}

func (c *Cache) fetchKeys(ctx context.Context, tenantID string) (*Set, error) {
	u := c.baseURL + fmt.Sprintf(keysPath, tenantID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w: %w", ErrFetchFailed, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("key set fetch failed", "tenant_id", tenantID, "error", err)
		return nil, fmt.Errorf("unable to fetch keys for tenant %s: %w: %w", tenantID, ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("key set fetch returned non-2xx", "tenant_id", tenantID, "status", resp.StatusCode)
		return nil, fmt.Errorf("keys endpoint for tenant %s returned %d: %w", tenantID, resp.StatusCode, ErrFetchFailed)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read keys response: %w: %w", ErrFetchFailed, err)
	}

	var jwks jose.JSONWebKeySet
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("unable to parse keys response: %w: %w", ErrFetchFailed, err)
	}

	keys := make(map[string]jose.JSONWebKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.KeyID == "" {
			continue
		}
		keys[k.KeyID] = k
	}
	c.logger.Debug("fetched key set", "tenant_id", tenantID, "keys", len(keys))

	return &Set{
		keys:      keys,
		fetchedAt: time.Now(),
	}, nil
}
