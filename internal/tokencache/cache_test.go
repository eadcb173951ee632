// AngelaMos | 2026
// cache_test.go

package tokencache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type countingFetcher struct {
	mu        sync.Mutex
	calls     int
	forced    int
	failNext  bool
	forcedErr error
	expiry    time.Time
}

func (f *countingFetcher) Fetch(_ context.Context, force bool) (*oauth2.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if force {
		f.forced++
		if f.forcedErr != nil {
			return nil, f.forcedErr
		}
		return &oauth2.Token{AccessToken: fmt.Sprintf("forced-%d", f.forced)}, nil
	}
	if f.failNext {
		f.failNext = false
		return nil, errors.New("metadata server unavailable")
	}
	return &oauth2.Token{AccessToken: fmt.Sprintf("tok-%d", f.calls), Expiry: f.expiry}, nil
}

func newTestCache(f Fetcher, ttl, margin time.Duration) *Cache {
	return New(f, ttl, margin, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCacheServesWithinWindow(t *testing.T) {
	f := &countingFetcher{}
	c := newTestCache(f, time.Hour, 5*time.Minute)
	ctx := context.Background()

	first, err := c.Token(ctx)
	require.NoError(t, err)
	second, err := c.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "tok-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.calls)
}

func TestCacheRefreshesInsideMargin(t *testing.T) {
	f := &countingFetcher{}
	c := newTestCache(f, time.Hour, 5*time.Minute)
	ctx := context.Background()

	_, err := c.Token(ctx)
	require.NoError(t, err)

	base := time.Now()
	c.now = func() time.Time { return base.Add(56 * time.Minute) }

	tok, err := c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, 2, f.calls)
}

func TestCacheHonoursShorterTokenExpiry(t *testing.T) {
	f := &countingFetcher{expiry: time.Now().Add(10 * time.Minute)}
	c := newTestCache(f, time.Hour, 5*time.Minute)
	ctx := context.Background()

	_, err := c.Token(ctx)
	require.NoError(t, err)

	base := time.Now()
	c.now = func() time.Time { return base.Add(6 * time.Minute) }

	_, err = c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
}

func TestCacheForcedFetchOnFailure(t *testing.T) {
	f := &countingFetcher{failNext: true}
	c := newTestCache(f, time.Hour, time.Minute)
	ctx := context.Background()

	tok, err := c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "forced-1", tok)

	tok, err = c.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-3", tok, "forced results are not cached")
}

func TestCacheBothFetchesFail(t *testing.T) {
	f := &countingFetcher{failNext: true, forcedErr: errors.New("denied")}
	c := newTestCache(f, time.Hour, time.Minute)

	_, err := c.Token(context.Background())
	assert.Error(t, err)
}

func TestCacheInvalidate(t *testing.T) {
	f := &countingFetcher{}
	c := newTestCache(f, time.Hour, time.Minute)
	ctx := context.Background()

	_, err := c.Token(ctx)
	require.NoError(t, err)
	c.Invalidate()
	tok, err := c.Token(ctx)
	require.NoError(t, err)

	assert.Equal(t, "tok-2", tok)
}

func TestCachesAreIndependent(t *testing.T) {
	a := newTestCache(&countingFetcher{}, time.Hour, time.Minute)
	b := newTestCache(FetcherFunc(func(context.Context, bool) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "other"}, nil
	}), time.Hour, time.Minute)
	ctx := context.Background()

	ta, err := a.Token(ctx)
	require.NoError(t, err)
	tb, err := b.Token(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, ta, tb)
}

func TestSourceReportsRefreshPoint(t *testing.T) {
	f := &countingFetcher{}
	c := newTestCache(f, time.Hour, 5*time.Minute)
	src := c.Source(context.Background())

	before := time.Now()
	tok, err := src.Token()
	require.NoError(t, err)

	assert.Equal(t, "tok-1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
	assert.WithinDuration(t, before.Add(55*time.Minute), tok.Expiry, 5*time.Second)

	again, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", again.AccessToken)
	assert.Equal(t, 1, f.calls)
}

func TestSourceForcedTokenExpiresImmediately(t *testing.T) {
	f := &countingFetcher{failNext: true}
	c := newTestCache(f, time.Hour, 5*time.Minute)

	tok, err := c.Source(context.Background()).Token()
	require.NoError(t, err)

	assert.Equal(t, "forced-1", tok.AccessToken)
	assert.False(t, tok.Expiry.After(time.Now()), "forced tokens are not cached")
}
