package keyset_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/entraguard/entraguard/keyset"
	"github.com/entraguard/entraguard/ststest"
	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTenantID = "11111111-2222-3333-4444-555555555555"

func TestCache_Get(t *testing.T) {
	ctx := context.Background()
	sts := ststest.Start(t, testTenantID)

	c, err := keyset.New(keyset.WithBaseURL(sts.Addr()))
	require.NoError(t, err)

	s, err := c.Get(ctx, testTenantID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, int64(1), sts.KeysFetchCount())

	// cache hit: no second origin request
	s2, err := c.Get(ctx, testTenantID)
	require.NoError(t, err)
	assert.Same(t, s, s2)
	assert.Equal(t, int64(1), sts.KeysFetchCount())
}

func TestCache_Get_EmptyTenant(t *testing.T) {
	c, err := keyset.New()
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "")
	require.ErrorIs(t, err, keyset.ErrInvalidParameter)
}

func TestCache_Get_FetchFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("unreachable-origin", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		c, err := keyset.New(keyset.WithBaseURL(addr), keyset.WithTimeout(2*time.Second))
		require.NoError(t, err)

		_, err = c.Get(ctx, testTenantID)
		require.ErrorIs(t, err, keyset.ErrFetchFailed)
	})

	t.Run("non-2xx-keeps-stale-set", func(t *testing.T) {
		sts := ststest.Start(t, testTenantID)
		c, err := keyset.New(
			keyset.WithBaseURL(sts.Addr()),
			keyset.WithTTL(time.Nanosecond), // every Get refetches
		)
		require.NoError(t, err)

		_, err = c.Get(ctx, testTenantID)
		require.NoError(t, err)

		sts.SetKeysError(true)
		_, err = c.Get(ctx, testTenantID)
		require.ErrorIs(t, err, keyset.ErrFetchFailed)

		// the stale entry was not evicted, so recovery needs no rotation
		sts.SetKeysError(false)
		s, err := c.Get(ctx, testTenantID)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("canceled-context", func(t *testing.T) {
		sts := ststest.Start(t, testTenantID)
		c, err := keyset.New(keyset.WithBaseURL(sts.Addr()))
		require.NoError(t, err)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = c.Get(canceled, testTenantID)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestCache_Refresh(t *testing.T) {
	ctx := context.Background()
	sts := ststest.Start(t, testTenantID)

	c, err := keyset.New(keyset.WithBaseURL(sts.Addr()))
	require.NoError(t, err)

	s, err := c.Get(ctx, testTenantID)
	require.NoError(t, err)
	_, err = s.ResolveKey("test-key-1")
	require.NoError(t, err)

	sts.RotateKey("test-key-2")

	// the cached set still serves the old kid until a forced refresh
	s, err = c.Get(ctx, testTenantID)
	require.NoError(t, err)
	_, err = s.ResolveKey("test-key-2")
	require.ErrorIs(t, err, keyset.ErrKeyNotFound)

	s, err = c.Refresh(ctx, testTenantID)
	require.NoError(t, err)
	key, err := s.ResolveKey("test-key-2")
	require.NoError(t, err)
	assert.Equal(t, "test-key-2", key.KeyID)
	assert.Equal(t, "RS256", key.Algorithm)
	assert.NotNil(t, key.Key)
}

func TestCache_InflightDedupe(t *testing.T) {
	ctx := context.Background()

	var hits atomic.Int64
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-block
		pub := ststest.GenerateKey(t).Public()
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{
			Keys: []jose.JSONWebKey{{Key: pub, KeyID: "kid-1", Algorithm: "RS256"}},
		})
	}))
	defer srv.Close()

	c, err := keyset.New(keyset.WithBaseURL(srv.URL))
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	sets := make([]*keyset.Set, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sets[i], errs[i] = c.Get(ctx, testTenantID)
		}(i)
	}

	// let all callers pile onto the single in-flight fetch
	time.Sleep(100 * time.Millisecond)
	close(block)
	wg.Wait()

	assert.Equal(t, int64(1), hits.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, sets[0], sets[i])
	}
}

func TestSet_ResolveKey(t *testing.T) {
	ctx := context.Background()
	sts := ststest.Start(t, testTenantID)

	c, err := keyset.New(keyset.WithBaseURL(sts.Addr()))
	require.NoError(t, err)
	s, err := c.Get(ctx, testTenantID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		kid     string
		wantErr error
	}{
		{name: "match", kid: "test-key-1"},
		{name: "unknown-kid", kid: "nope", wantErr: keyset.ErrKeyNotFound},
		{name: "empty-kid", kid: "", wantErr: keyset.ErrInvalidParameter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := s.ResolveKey(tt.kid)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kid, key.KeyID)
		})
	}
}
