package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) redis.RedisAdapter {
	mr := miniredis.RunT(t)

	// adapters are cached by name, so every test gets its own
	adapter, err := redis.NewRedisAdapter(t.Name()+"-"+mr.Addr(), "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)
	return adapter
}

func testConfig() Config {
	return Config{
		Stream:        "events:test",
		Group:         "test-group",
		Consumer:      "test-consumer",
		MaxDeliveries: 2,
		ClaimAfter:    50 * time.Millisecond,
		PollInterval:  10 * time.Millisecond,
		BatchSize:     10,
		MaxLen:        1000,
		DeadLetter:    true,
	}
}

type testEvent struct {
	EventID string `json:"event_id"`
	QueueID int64  `json:"queue_id"`
}

func TestNewQueue(t *testing.T) {
	adapter := setupTestRedis(t)

	_, err := NewQueue(adapter, Config{})
	assert.Error(t, err)

	q, err := NewQueue(adapter, Config{Stream: "events:defaults"})
	require.NoError(t, err)
	cfg := q.Config()
	assert.Equal(t, "events:defaults-group", cfg.Group)
	assert.NotEmpty(t, cfg.Consumer)
	assert.Equal(t, int64(3), cfg.MaxDeliveries)
	assert.Equal(t, 30*time.Second, cfg.ClaimAfter)

	// second group creation on the same stream is not an error
	_, err = NewQueue(adapter, Config{Stream: "events:defaults"})
	assert.NoError(t, err)
}

func TestQueue_PublishAndRun(t *testing.T) {
	adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)

	id, err := q.PublishJSON(context.Background(), testEvent{EventID: "ev-1", QueueID: 7}, map[string]string{"action": "sent"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	received := make(chan *Message, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = q.Run(ctx, func(ctx context.Context, msg *Message) error {
			received <- msg
			return nil
		})
	}()

	select {
	case msg := <-received:
		var ev testEvent
		require.NoError(t, json.Unmarshal(msg.Data, &ev))
		assert.Equal(t, "ev-1", ev.EventID)
		assert.Equal(t, int64(7), ev.QueueID)
		assert.Equal(t, "sent", msg.Headers["action"])
		assert.Equal(t, int64(1), msg.Deliveries)
		assert.False(t, msg.PublishedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("message not consumed")
	}

	assert.Eventually(t, func() bool {
		st, err := q.Stats()
		return err == nil && st.Pending == 0 && st.Length == 1
	}, time.Second, 10*time.Millisecond)
}

func TestQueue_FailedMessageIsRedelivered(t *testing.T) {
	adapter := setupTestRedis(t)
	cfg := testConfig()
	cfg.MaxDeliveries = 5
	q, err := NewQueue(adapter, cfg)
	require.NoError(t, err)

	_, err = q.PublishJSON(context.Background(), testEvent{EventID: "ev-2"}, nil)
	require.NoError(t, err)

	var calls atomic.Int32
	done := make(chan int64, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = q.Run(ctx, func(ctx context.Context, msg *Message) error {
			if calls.Add(1) == 1 {
				return errors.New("transient")
			}
			done <- msg.Deliveries
			return nil
		})
	}()

	select {
	case deliveries := <-done:
		assert.GreaterOrEqual(t, deliveries, int64(2))
	case <-time.After(3 * time.Second):
		t.Fatal("message not redelivered")
	}
}

func TestQueue_ExhaustedMessageGoesToDeadLetter(t *testing.T) {
	adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)

	_, err = q.PublishJSON(context.Background(), testEvent{EventID: "ev-3"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = q.Run(ctx, func(ctx context.Context, msg *Message) error {
			return errors.New("always fails")
		})
	}()

	assert.Eventually(t, func() bool {
		n, err := q.DeadLetterLen()
		return err == nil && n == 1
	}, 3*time.Second, 20*time.Millisecond)

	assert.Eventually(t, func() bool {
		st, err := q.Stats()
		return err == nil && st.Pending == 0
	}, time.Second, 20*time.Millisecond)
}

func TestQueue_ManualDeadLetter(t *testing.T) {
	adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)

	_, err = q.Publish(context.Background(), []byte("not json"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	settled := make(chan error, 1)
	go func() {
		_ = q.Run(ctx, func(ctx context.Context, msg *Message) error {
			assert.NoError(t, msg.DeadLetter("malformed"))
			settled <- msg.Ack()
			return nil
		})
	}()

	select {
	case err := <-settled:
		assert.ErrorIs(t, err, ErrAlreadySettled)
	case <-time.After(2 * time.Second):
		t.Fatal("message not consumed")
	}

	n, err := q.DeadLetterLen()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestQueue_PublishCancelledContext(t *testing.T) {
	adapter := setupTestRedis(t)
	q, err := NewQueue(adapter, testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Publish(ctx, []byte("{}"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
