package authflow

import (
	"fmt"
	"sync"
	"time"
)

// DefaultRequestTTL bounds how long a login redirect can sit before the
// callback is rejected.
const DefaultRequestTTL = 10 * time.Minute

// Request is a pending authentication request, created when the login
// redirect is issued and redeemed exactly once by the callback.
type Request struct {
	State string
	Nonce string

	expiresAt time.Time
}

// RequestCache is an in-memory store of pending authentication requests
// keyed by state. Entries expire after the configured TTL and are removed
// on first read, so a state can never be replayed.
type RequestCache struct {
	mu   sync.Mutex
	ttl  time.Duration
	reqs map[string]Request
	now  func() time.Time
}

// NewRequestCache creates a cache with the given entry lifetime. A zero or
// negative ttl falls back to DefaultRequestTTL.
func NewRequestCache(ttl time.Duration) *RequestCache {
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	return &RequestCache{
		ttl:  ttl,
		reqs: make(map[string]Request),
		now:  time.Now,
	}
}

// Add registers a pending request under its state. Expired entries are
// swept opportunistically.
func (c *RequestCache) Add(r Request) error {
	const op = "authflow.(RequestCache).Add"
	if r.State == "" {
		return fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for state, pending := range c.reqs {
		if now.After(pending.expiresAt) {
			delete(c.reqs, state)
		}
	}

	r.expiresAt = now.Add(c.ttl)
	c.reqs[r.State] = r
	return nil
}

// Take redeems the request for the given state and removes it. A state that
// was never issued, already redeemed, or expired returns ErrExpiredRequest;
// the three cases are deliberately indistinguishable to the caller.
func (c *RequestCache) Take(state string) (Request, error) {
	const op = "authflow.(RequestCache).Take"
	if state == "" {
		return Request{}, fmt.Errorf("%s: state is empty: %w", op, ErrInvalidParameter)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.reqs[state]
	if !ok {
		return Request{}, fmt.Errorf("%s: %w", op, ErrExpiredRequest)
	}
	delete(c.reqs, state)
	if c.now().After(r.expiresAt) {
		return Request{}, fmt.Errorf("%s: %w", op, ErrExpiredRequest)
	}
	return r, nil
}

// Len reports the number of pending requests, expired entries included
// until the next sweep.
func (c *RequestCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reqs)
}
