package session

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDenylistRevokeAndLookup(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	dl := NewDenylist(cache)
	ctx := context.Background()

	revoked, err := dl.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("fresh jti should not be revoked, got %v %v", revoked, err)
	}

	if err := dl.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}

	// Entries lapse with the token's natural expiry.
	mr.FastForward(2 * time.Minute)
	revoked, err = dl.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("expected entry to lapse, got %v %v", revoked, err)
	}
}

func TestDenylistNilClientIsNoop(t *testing.T) {
	dl := NewDenylist(nil)
	ctx := context.Background()

	if err := dl.Revoke(ctx, "jti-1", time.Minute); err != nil {
		t.Fatalf("revoke on nil client: %v", err)
	}
	revoked, err := dl.IsRevoked(ctx, "jti-1")
	if err != nil || revoked {
		t.Fatalf("nil client must report not revoked, got %v %v", revoked, err)
	}
}

func TestDenylistIgnoresExpiredRemainder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	dl := NewDenylist(cache)
	if err := dl.Revoke(context.Background(), "jti-2", -time.Second); err != nil {
		t.Fatalf("revoke with negative remainder: %v", err)
	}
	revoked, err := dl.IsRevoked(context.Background(), "jti-2")
	if err != nil || revoked {
		t.Fatalf("already-expired token must not be stored, got %v %v", revoked, err)
	}
}
