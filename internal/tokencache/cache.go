// AngelaMos | 2026
// cache.go

package tokencache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

const entryKey = "access_token"

var ErrEmptyToken = errors.New("token source returned an empty token")

// Fetcher obtains a token. force asks the source to skip any cache of its own.
type Fetcher interface {
	Fetch(ctx context.Context, force bool) (*oauth2.Token, error)
}

type FetcherFunc func(ctx context.Context, force bool) (*oauth2.Token, error)

func (f FetcherFunc) Fetch(ctx context.Context, force bool) (*oauth2.Token, error) {
	return f(ctx, force)
}

// Cache holds one token for ttl and refreshes it once fewer than margin
// remains. Each Cache is independent; nothing is shared between instances.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	margin  time.Duration
	store   *gocache.Cache
	logger  *slog.Logger
	mu      sync.Mutex
	now     func() time.Time
}

func New(fetcher Fetcher, ttl, margin time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		margin:  margin,
		store:   gocache.New(ttl, 2*ttl),
		logger:  logger,
		now:     time.Now,
	}
}

// Token returns the cached token while it is outside the refresh margin.
// When a refresh fails, one forced fetch is tried and its result is returned
// without being cached.
func (c *Cache) Token(ctx context.Context) (string, error) {
	tok, _, err := c.token(ctx)
	return tok, err
}

// Source adapts the cache to oauth2.TokenSource. Each token expires where
// the cache's refresh margin begins, so clients that hold tokens themselves
// come back before the cache would refresh. An uncached token expires now.
func (c *Cache) Source(ctx context.Context) oauth2.TokenSource {
	return source{ctx: ctx, cache: c}
}

type source struct {
	ctx   context.Context
	cache *Cache
}

func (s source) Token() (*oauth2.Token, error) {
	tok, refreshAt, err := s.cache.token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer", Expiry: refreshAt}, nil
}

func (c *Cache) token(ctx context.Context) (string, time.Time, error) {
	if tok, refreshAt, ok := c.cached(); ok {
		return tok, refreshAt, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, refreshAt, ok := c.cached(); ok {
		return tok, refreshAt, nil
	}

	tok, err := c.fetch(ctx, false)
	if err == nil {
		c.put(tok)
		if v, refreshAt, ok := c.cached(); ok {
			return v, refreshAt, nil
		}
		return tok.AccessToken, c.now(), nil
	}

	c.logger.Warn("token refresh failed, forcing fetch", "error", err)

	tok, err = c.fetch(ctx, true)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("forced token fetch: %w", err)
	}
	return tok.AccessToken, c.now(), nil
}

func (c *Cache) Invalidate() {
	c.store.Delete(entryKey)
}

// cached returns the stored token and the time its refresh margin starts.
func (c *Cache) cached() (string, time.Time, bool) {
	v, exp, found := c.store.GetWithExpiration(entryKey)
	if !found {
		return "", time.Time{}, false
	}
	refreshAt := exp.Add(-c.margin)
	if !c.now().Before(refreshAt) {
		return "", time.Time{}, false
	}
	tok, ok := v.(string)
	return tok, refreshAt, ok
}

func (c *Cache) fetch(ctx context.Context, force bool) (*oauth2.Token, error) {
	tok, err := c.fetcher.Fetch(ctx, force)
	if err != nil {
		return nil, err
	}
	if tok == nil || tok.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	return tok, nil
}

func (c *Cache) put(tok *oauth2.Token) {
	now := c.now()
	lifetime := c.ttl
	if !tok.Expiry.IsZero() {
		if until := tok.Expiry.Sub(now); until < lifetime {
			lifetime = until
		}
	}
	if lifetime <= 0 {
		return
	}
	c.store.Set(entryKey, tok.AccessToken, lifetime)
}
