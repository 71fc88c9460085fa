package session

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const denylistPrefix = "session:deny:"

// Denylist records revoked token identifiers in Redis until their natural
// expiry. A nil client degrades every call to a no-op, which matches the
// cookie-clearing-only logout of deployments without Redis.
type Denylist struct {
	cache *redis.Client
}

// NewDenylist builds a denylist over the given Redis client. The client may be nil.
func NewDenylist(cache *redis.Client) *Denylist {
	return &Denylist{cache: cache}
}

// Revoke marks a token identifier as unusable for its remaining validity.
// Non-positive TTLs are ignored; the token is already expired.
func (d *Denylist) Revoke(ctx context.Context, jti string, remaining time.Duration) error {
	if d == nil || d.cache == nil || jti == "" || remaining <= 0 {
		return nil
	}
	return d.cache.Set(ctx, denylistPrefix+jti, "1", remaining).Err()
}

// IsRevoked reports whether the token identifier has been revoked. Lookup
// failures are returned so the caller can decide between fail-open and
// fail-closed handling.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.cache == nil || jti == "" {
		return false, nil
	}
	err := d.cache.Get(ctx, denylistPrefix+jti).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
