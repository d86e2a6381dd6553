package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "revoked:access_token:"

// TokenBlocklist records logged-out access tokens until they expire.
// Key format: revoked:access_token:<jti>
type TokenBlocklist struct {
	client *redis.Client
}

func NewTokenBlocklist(client *redis.Client) *TokenBlocklist {
	return &TokenBlocklist{client: client}
}

// Revoke blocks tokenID for ttl.
func (b *TokenBlocklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if err := b.client.Set(ctx, key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID has been logged out.
func (b *TokenBlocklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := b.client.Exists(ctx, key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}

func key(tokenID string) string {
	return keyPrefix + tokenID
}
