package revocation

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisDenylist_RevokeAndExpire(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	d := NewRedisDenylist(client, "")

	ctx := context.Background()
	require.NoError(t, d.Revoke(ctx, "jti-1", 2*time.Second))

	ok, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, m.Exists("revoked:access:jti-1"))

	// advance past TTL
	m.FastForward(3 * time.Second)

	ok2, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, ok2)
}

func TestRedisDenylist_ExpiredTTLIsNoop(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	d := NewRedisDenylist(client, "test:")

	ctx := context.Background()
	require.NoError(t, d.Revoke(ctx, "jti-2", 0))
	ok, err := d.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisDenylist_ServerDown(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: m.Addr(), MaxRetries: -1})
	d := NewRedisDenylist(client, "")
	m.Close()

	_, err = d.IsRevoked(context.Background(), "jti-3")
	require.Error(t, err)
}
