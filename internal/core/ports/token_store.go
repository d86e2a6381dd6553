package ports

import (
	"context"
	"time"
)

// TokenRevoker tracks access tokens invalidated before their expiry.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
