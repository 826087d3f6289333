package redis

import (
	"context"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

var NilError = goredis.Nil

type Options = goredis.UniversalOptions

// StreamMessage is one stream entry as returned by a read or a claim.
type StreamMessage struct {
	ID     string
	Values map[string]interface{}
}

// PendingEntry is an entry delivered to a consumer but not yet acked.
type PendingEntry struct {
	ID       string
	Consumer string
	Idle     time.Duration
	// Deliveries is how many times the entry was handed out.
	Deliveries int64
}

type PendingSummary struct {
	Count     int64
	Consumers map[string]int64
}

type ReadGroupArgs struct {
	Stream   string
	Group    string
	Consumer string
	Count    int64
}

type RedisAdapter interface {
	// Key/value operations back the event processor's idempotency markers.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error

	// Stream operations carry delivery events.
	XAdd(ctx context.Context, stream string, maxLen int64, values map[string]interface{}) (string, error)
	XReadGroup(ctx context.Context, args ReadGroupArgs) ([]StreamMessage, error)
	XAck(ctx context.Context, stream, group string, ids ...string) error
	EnsureGroup(ctx context.Context, stream, group string) error
	XLen(ctx context.Context, stream string) (int64, error)
	XPendingSummary(ctx context.Context, stream, group string) (*PendingSummary, error)
	XPendingEntries(ctx context.Context, stream, group string, count int64) ([]PendingEntry, error)
	XClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error)
}

type redisAdapter struct {
	prefix   string
	conn     goredis.UniversalClient
	connName string
}

var redisLock = &sync.RWMutex{}
var redisInstance map[string]RedisAdapter

// NewRedisAdapter returns the adapter registered under connName, dialing and
// pinging a new client the first time a name is seen. Every key and stream
// name is prefixed with keysPrefix.
func NewRedisAdapter(connName string, keysPrefix string, opts *goredis.UniversalOptions) (RedisAdapter, error) {
	redisLock.RLock()
	adapter, ok := redisInstance[connName]
	redisLock.RUnlock()
	if ok {
		return adapter, nil
	}

	redisLock.Lock()
	defer redisLock.Unlock()
	if redisInstance == nil {
		redisInstance = make(map[string]RedisAdapter)
	}
	if adapter, ok := redisInstance[connName]; ok {
		return adapter, nil
	}

	c := goredis.NewUniversalClient(opts)
	if err := c.Ping(context.Background()).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}

	adapter = &redisAdapter{prefix: keysPrefix, conn: c, connName: connName}
	redisInstance[connName] = adapter
	return adapter, nil
}

func (r *redisAdapter) key(k string) string {
	return r.prefix + k
}

func (r *redisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.conn.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisAdapter) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return r.conn.SetNX(ctx, r.key(key), value, ttl).Result()
}

func (r *redisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	return r.conn.Get(ctx, r.key(key)).Bytes()
}

func (r *redisAdapter) Del(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	return r.conn.Del(ctx, full...).Err()
}

func (r *redisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.conn.Exists(ctx, r.key(key)).Result()
	return n > 0, err
}

// Incr bumps a counter and refreshes its ttl in one transaction.
func (r *redisAdapter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *goredis.IntCmd
	_, err := r.conn.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, r.key(key))
		if ttl > 0 {
			p.Expire(ctx, r.key(key), ttl)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (r *redisAdapter) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx).Err()
}

// XAdd appends an entry. A positive maxLen trims the stream approximately.
func (r *redisAdapter) XAdd(ctx context.Context, stream string, maxLen int64, values map[string]interface{}) (string, error) {
	args := &goredis.XAddArgs{
		Stream: r.key(stream),
		ID:     "*",
		Values: values,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return r.conn.XAdd(ctx, args).Result()
}

// XReadGroup reads entries never delivered to the group. It does not block;
// an empty stream reports NilError.
func (r *redisAdapter) XReadGroup(ctx context.Context, args ReadGroupArgs) ([]StreamMessage, error) {
	streams, err := r.conn.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    args.Group,
		Consumer: args.Consumer,
		Streams:  []string{r.key(args.Stream), ">"},
		Count:    args.Count,
		Block:    -1,
	}).Result()
	if err != nil {
		return nil, err
	}

	var messages []StreamMessage
	for _, stream := range streams {
		messages = append(messages, toStreamMessages(stream.Messages)...)
	}
	return messages, nil
}

func (r *redisAdapter) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return r.conn.XAck(ctx, r.key(stream), group, ids...).Err()
}

// EnsureGroup creates the stream and its consumer group, reading from the
// start. An existing group is not an error.
func (r *redisAdapter) EnsureGroup(ctx context.Context, stream, group string) error {
	err := r.conn.XGroupCreateMkStream(ctx, r.key(stream), group, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (r *redisAdapter) XLen(ctx context.Context, stream string) (int64, error) {
	return r.conn.XLen(ctx, r.key(stream)).Result()
}

func (r *redisAdapter) XPendingSummary(ctx context.Context, stream, group string) (*PendingSummary, error) {
	res, err := r.conn.XPending(ctx, r.key(stream), group).Result()
	if err != nil {
		return nil, err
	}
	return &PendingSummary{Count: res.Count, Consumers: res.Consumers}, nil
}

func (r *redisAdapter) XPendingEntries(ctx context.Context, stream, group string, count int64) ([]PendingEntry, error) {
	res, err := r.conn.XPendingExt(ctx, &goredis.XPendingExtArgs{
		Stream: r.key(stream),
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]PendingEntry, len(res))
	for i, p := range res {
		entries[i] = PendingEntry{
			ID:         p.ID,
			Consumer:   p.Consumer,
			Idle:       p.Idle,
			Deliveries: p.RetryCount,
		}
	}
	return entries, nil
}

func (r *redisAdapter) XClaim(ctx context.Context, stream, group, consumer string, minIdle time.Duration, ids ...string) ([]StreamMessage, error) {
	msgs, err := r.conn.XClaim(ctx, &goredis.XClaimArgs{
		Stream:   r.key(stream),
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}
	return toStreamMessages(msgs), nil
}

func toStreamMessages(in []goredis.XMessage) []StreamMessage {
	out := make([]StreamMessage, len(in))
	for i, m := range in {
		out[i] = StreamMessage{ID: m.ID, Values: m.Values}
	}
	return out
}
