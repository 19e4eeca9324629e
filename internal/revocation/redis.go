// Package revocation keeps a denylist of access tokens that were logged out
// before their natural expiry.
package revocation

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "revoked:access:"

// RedisDenylist stores revoked token ids in Redis; entries expire together
// with the token they refer to.
type RedisDenylist struct {
	client *redis.Client
	prefix string
}

// NewRedisDenylist creates a denylist. Prefix may be empty.
func NewRedisDenylist(client *redis.Client, prefix string) *RedisDenylist {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisDenylist{client: client, prefix: prefix}
}

// Revoke marks the token id as revoked for ttl. A non-positive ttl is a no-op
// since the token is already expired.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether the token id is on the denylist.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
