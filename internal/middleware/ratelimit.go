// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/denemeapp/kpss-backend/internal/core"
)

var errRateLimited = errors.New("rate limited")

type RateLimitConfig struct {
	Limit      redis_rate.Limit
	KeyFunc    func(*http.Request) string
	FailOpen   bool
	BypassFunc func(*http.Request) bool
}

type RateLimiter struct {
	backend *limiterBackend
	config  RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}

	return &RateLimiter{
		backend: newLimiterBackend(rdb, !cfg.FailOpen),
		config:  cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.config.BypassFunc != nil && rl.config.BypassFunc(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.config.KeyFunc(r)
		res, err := rl.backend.allow(r.Context(), key, rl.config.Limit)
		if err != nil {
			slog.Error("rate limiter unavailable", "error", err, "key", key)
			http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
			return
		}

		setRateLimitHeaders(w, res, rl.config.Limit)
		if res.Allowed == 0 {
			writeRateLimitExceeded(w, res)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type TierConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

var DefaultTiers = map[string]TierConfig{
	TierFree:    {RequestsPerMinute: 60, BurstSize: 10},
	TierPremium: {RequestsPerMinute: 300, BurstSize: 50},
	TierAdmin:   {RequestsPerMinute: 1200, BurstSize: 200},
}

// TieredRateLimiter budgets per user by the tier their token carries, so
// full-bundle holders and admins get more headroom. Anonymous callers are
// keyed by IP on the free tier. It must run after OptionalAuth.
func TieredRateLimiter(
	rdb *redis.Client,
	tiers map[string]TierConfig,
) func(http.Handler) http.Handler {
	backend := newLimiterBackend(rdb, false)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tier := GetUserTier(r.Context())
			tc, ok := tiers[tier]
			if !ok {
				tier = TierFree
				tc = tiers[TierFree]
			}

			limit := PerMinute(tc.RequestsPerMinute, tc.BurstSize)
			res, err := backend.allow(r.Context(), KeyByUser(r), limit)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Tier", tier)
			setRateLimitHeaders(w, res, limit)
			if res.Allowed == 0 {
				writeRateLimitExceeded(w, res)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func PerMinute(rate, burst int) redis_rate.Limit {
	return Every(time.Minute, rate, burst)
}

// Every allows rate requests per window with the given burst.
func Every(window time.Duration, rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{
		Rate:   rate,
		Burst:  burst,
		Period: window,
	}
}

// ClientIP prefers the proxy-appended X-Forwarded-For entry, then
// X-Real-IP, then the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "ratelimit:user:" + userID
	}
	return KeyByIP(r)
}

// limiterBackend asks redis first and falls back to an in-process token
// bucket per key when redis errors. With strict set the redis error is
// returned instead.
type limiterBackend struct {
	redis  *redis_rate.Limiter
	local  *localLimiter
	strict bool
}

func newLimiterBackend(rdb *redis.Client, strict bool) *limiterBackend {
	return &limiterBackend{
		redis:  redis_rate.NewLimiter(rdb),
		local:  newLocalLimiter(),
		strict: strict,
	}
}

func (b *limiterBackend) allow(
	ctx context.Context,
	key string,
	limit redis_rate.Limit,
) (*redis_rate.Result, error) {
	res, err := b.redis.Allow(ctx, key, limit)
	if err == nil {
		return res, nil
	}
	if b.strict {
		return nil, fmt.Errorf("redis limiter: %w", err)
	}

	slog.Warn("redis rate limiter failed, using local limiter", "error", err)
	return b.local.allow(key, limit), nil
}

const (
	localEntryTTL     = 10 * time.Minute
	localCleanupEvery = 5 * time.Minute
)

// localLimiter keeps one token bucket per key. Idle buckets expire with the
// cache entry.
type localLimiter struct {
	buckets *gocache.Cache
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{buckets: gocache.New(localEntryTTL, localCleanupEvery)}
}

func (l *localLimiter) bucket(key string, limit redis_rate.Limit) *rate.Limiter {
	if v, ok := l.buckets.Get(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			l.buckets.SetDefault(key, lim)
			return lim
		}
	}

	lim := rate.NewLimiter(rate.Limit(perSecond(limit)), limit.Burst)
	if err := l.buckets.Add(key, lim, gocache.DefaultExpiration); err != nil {
		if v, ok := l.buckets.Get(key); ok {
			if existing, ok := v.(*rate.Limiter); ok {
				return existing
			}
		}
	}
	return lim
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	lim := l.bucket(key, limit)
	allowed := lim.Allow()
	interval := time.Duration(float64(time.Second) / perSecond(limit))

	res := &redis_rate.Result{
		Limit:      limit,
		Remaining:  max(int(lim.Tokens()), 0),
		RetryAfter: -1,
		ResetAfter: interval,
	}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	return res
}

func perSecond(limit redis_rate.Limit) float64 {
	return float64(limit.Rate) / limit.Period.Seconds()
}

func setRateLimitHeaders(
	w http.ResponseWriter,
	res *redis_rate.Result,
	limit redis_rate.Limit,
) {
	h := w.Header()

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf(`%d;w=%d`, limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf(`%d;t=%d`, res.Remaining, int(res.ResetAfter.Seconds())))
}

func writeRateLimitExceeded(w http.ResponseWriter, res *redis_rate.Result) {
	retryAfter := max(int(res.RetryAfter.Seconds()), 1)

	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	core.JSONError(w, core.NewAppError(
		errRateLimited,
		fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter),
		http.StatusTooManyRequests,
		"RATE_LIMITED",
	))
}
