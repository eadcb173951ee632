// AngelaMos | 2026
// blacklist.go

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const blacklistPrefix = "auth:revoked:"

// Blacklist holds revoked access token IDs until the token would have
// expired anyway. A nil client turns every operation into a no-op.
type Blacklist struct {
	rdb *redis.Client
}

func NewBlacklist(rdb *redis.Client) *Blacklist {
	return &Blacklist{rdb: rdb}
}

func (b *Blacklist) Add(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if b.rdb == nil || jti == "" || ttl <= 0 {
		return nil
	}
	if err := b.rdb.Set(ctx, blacklistPrefix+jti, 1, ttl).Err(); err != nil {
		return fmt.Errorf("blacklist %s: %w", jti, err)
	}
	return nil
}

func (b *Blacklist) Contains(ctx context.Context, jti string) (bool, error) {
	if b.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := b.rdb.Exists(ctx, blacklistPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("blacklist lookup: %w", err)
	}
	return n > 0, nil
}
