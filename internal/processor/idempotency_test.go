package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.RedisAdapter) {
	mr := miniredis.RunT(t)
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return mr, adapter
}

func TestIdempotency_Defaults(t *testing.T) {
	_, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, IdempotencyConfig{})
	assert.Equal(t, DefaultIdempotencyConfig(), s.config)
}

func TestIdempotency_ClaimFirstAttempt(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, DefaultIdempotencyConfig())

	c, err := s.Claim(context.Background(), "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "ev-1", c.EventID)
	assert.Equal(t, 0, c.Attempt)
	assert.True(t, c.held)
	assert.True(t, mr.Exists("delivery-event:lock:ev-1"))
	assert.Equal(t, 30*time.Second, mr.TTL("delivery-event:lock:ev-1"))
}

func TestIdempotency_ConcurrentClaim(t *testing.T) {
	_, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	first, err := s.Claim(ctx, "ev-2")
	require.NoError(t, err)

	second, err := s.Claim(ctx, "ev-2")
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Nil(t, second)
	assert.True(t, first.held)
}

func TestIdempotency_CompleteSuppressesRedelivery(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	c, err := s.Claim(ctx, "ev-3")
	require.NoError(t, err)
	require.NoError(t, s.Complete(ctx, c))

	done, err := s.Processed(ctx, "ev-3")
	require.NoError(t, err)
	assert.True(t, done)
	assert.False(t, mr.Exists("delivery-event:lock:ev-3"))
	assert.Equal(t, 24*time.Hour, mr.TTL("delivery-event:done:ev-3"))

	again, err := s.Claim(ctx, "ev-3")
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Nil(t, again)
}

func TestIdempotency_FailCountsAttempts(t *testing.T) {
	_, adapter := setupTestRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.MaxAttempts = 2
	s := NewIdempotency(adapter, cfg)
	ctx := context.Background()

	for i := 0; i < cfg.MaxAttempts; i++ {
		c, err := s.Claim(ctx, "ev-4")
		require.NoError(t, err, "attempt %d", i)
		assert.Equal(t, i, c.Attempt)
		s.Fail(ctx, c, errors.New("db down"))
	}

	n, err := s.Attempts(ctx, "ev-4")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.Claim(ctx, "ev-4")
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestIdempotency_CompleteClearsAttempts(t *testing.T) {
	_, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	c, err := s.Claim(ctx, "ev-5")
	require.NoError(t, err)
	s.Fail(ctx, c, errors.New("timeout"))

	c, err = s.Claim(ctx, "ev-5")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Attempt)
	require.NoError(t, s.Complete(ctx, c))

	n, err := s.Attempts(ctx, "ev-5")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIdempotency_Release(t *testing.T) {
	_, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, DefaultIdempotencyConfig())
	ctx := context.Background()

	c, err := s.Claim(ctx, "ev-6")
	require.NoError(t, err)
	require.NoError(t, s.Release(ctx, c))
	assert.False(t, c.held)
	// releasing twice is a no-op
	require.NoError(t, s.Release(ctx, c))
	require.NoError(t, s.Release(ctx, nil))

	_, err = s.Claim(ctx, "ev-6")
	assert.NoError(t, err)
}

func TestIdempotency_CorruptCounter(t *testing.T) {
	mr, adapter := setupTestRedis(t)
	s := NewIdempotency(adapter, DefaultIdempotencyConfig())
	require.NoError(t, mr.Set("delivery-event:attempts:ev-7", "x"))

	_, err := s.Attempts(context.Background(), "ev-7")
	assert.Error(t, err)
}
