package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdapter(t *testing.T, prefix string) (*miniredis.Miniredis, RedisAdapter) {
	mr := miniredis.RunT(t)
	adapter, err := NewRedisAdapter(t.Name(), prefix, &Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	return mr, adapter
}

func TestNewRedisAdapter_CachedByName(t *testing.T) {
	mr, a := setupAdapter(t, "")
	b, err := NewRedisAdapter(t.Name(), "ignored:", &Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestNewRedisAdapter_Unreachable(t *testing.T) {
	_, err := NewRedisAdapter(t.Name(), "", &Options{
		Addrs:       []string{"127.0.0.1:1"},
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	assert.Error(t, err)
}

func TestRedisAdapter_KeyValue(t *testing.T) {
	mr, r := setupAdapter(t, "app:")
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	assert.True(t, mr.Exists("app:k"))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	ok, err := r.SetNX(ctx, "k", []byte("other"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := r.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.Del(ctx, "k"))
	_, err = r.Get(ctx, "k")
	assert.True(t, errors.Is(err, NilError))

	assert.NoError(t, r.Ping(ctx))
}

func TestRedisAdapter_Incr(t *testing.T) {
	mr, r := setupAdapter(t, "app:")
	ctx := context.Background()

	n, err := r.Incr(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = r.Incr(ctx, "counter", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, time.Hour, mr.TTL("app:counter"))
}

func TestRedisAdapter_Streams(t *testing.T) {
	mr, r := setupAdapter(t, "app:")
	ctx := context.Background()

	require.NoError(t, r.EnsureGroup(ctx, "events", "g"))
	assert.True(t, mr.Exists("app:events"))
	require.NoError(t, r.EnsureGroup(ctx, "events", "g"))

	read := ReadGroupArgs{Stream: "events", Group: "g", Consumer: "c1", Count: 10}

	// an empty read reports NilError
	_, err := r.XReadGroup(ctx, read)
	assert.True(t, errors.Is(err, NilError))

	id, err := r.XAdd(ctx, "events", 100, map[string]interface{}{"data": "x"})
	require.NoError(t, err)

	msgs, err := r.XReadGroup(ctx, read)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, "x", msgs[0].Values["data"])

	summary, err := r.XPendingSummary(ctx, "events", "g")
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Count)
	assert.Equal(t, int64(1), summary.Consumers["c1"])

	pending, err := r.XPendingEntries(ctx, "events", "g", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c1", pending[0].Consumer)
	assert.Equal(t, int64(1), pending[0].Deliveries)

	claimed, err := r.XClaim(ctx, "events", "g", "c2", 0, id)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	pending, err = r.XPendingEntries(ctx, "events", "g", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "c2", pending[0].Consumer)
	assert.Equal(t, int64(2), pending[0].Deliveries)

	require.NoError(t, r.XAck(ctx, "events", "g", id))
	pending, err = r.XPendingEntries(ctx, "events", "g", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := r.XLen(ctx, "events")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
