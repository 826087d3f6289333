// Package queue is an at-least-once event stream on top of Redis Streams
// consumer groups. Entries not acknowledged within ClaimAfter are reclaimed
// by another consumer; entries delivered more than MaxDeliveries times are
// moved to the dead-letter stream.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/prom"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
)

const (
	fieldData        = "data"
	fieldPublishedAt = "published_at"
	headerPrefix     = "h_"
)

var ErrAlreadySettled = errors.New("message already settled")

type Message struct {
	ID          string
	Data        []byte
	Headers     map[string]string
	PublishedAt time.Time
	// Deliveries counts how many times the stream handed this entry out,
	// including the current one.
	Deliveries int64

	mu      sync.Mutex
	settled bool
	queue   *Queue
}

// Ack removes the message from the consumer group's pending list.
func (m *Message) Ack() error {
	if err := m.settle(); err != nil {
		return err
	}
	return m.queue.ack(m.ID)
}

// DeadLetter moves the message to the dead-letter stream and acks it. Used
// for payloads that can never succeed.
func (m *Message) DeadLetter(reason string) error {
	if err := m.settle(); err != nil {
		return err
	}
	m.queue.deadLetter(m, reason)
	return m.queue.ack(m.ID)
}

func (m *Message) settle() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return ErrAlreadySettled
	}
	m.settled = true
	return nil
}

func (m *Message) isSettled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled
}

// Handler processes one message. A nil return acks it; an error leaves it
// pending so it is reclaimed after ClaimAfter.
type Handler func(ctx context.Context, msg *Message) error

type Config struct {
	Stream        string
	Group         string
	Consumer      string
	MaxDeliveries int64
	ClaimAfter    time.Duration
	PollInterval  time.Duration
	BatchSize     int64
	MaxLen        int64
	DeadLetter    bool
}

func (c Config) withDefaults() Config {
	if c.Group == "" {
		c.Group = c.Stream + "-group"
	}
	if c.Consumer == "" {
		c.Consumer = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 3
	}
	if c.ClaimAfter <= 0 {
		c.ClaimAfter = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	return c
}

type Queue struct {
	adapter redis.RedisAdapter
	config  Config
}

type Stats struct {
	Length    int64
	Pending   int64
	Consumers int
}

func NewQueue(adapter redis.RedisAdapter, config Config) (*Queue, error) {
	if config.Stream == "" {
		return nil, errors.New("stream name is required")
	}
	config = config.withDefaults()

	if err := adapter.EnsureGroup(context.Background(), config.Stream, config.Group); err != nil {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", config.Group, err)
	}
	return &Queue{adapter: adapter, config: config}, nil
}

func (q *Queue) Config() Config {
	return q.config
}

// Publish appends data with its headers and returns the stream entry id.
func (q *Queue) Publish(ctx context.Context, data []byte, headers map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	values := map[string]interface{}{
		fieldData:        string(data),
		fieldPublishedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range headers {
		values[headerPrefix+k] = v
	}

	id, err := q.adapter.XAdd(ctx, q.config.Stream, q.config.MaxLen, values)
	if err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", q.config.Stream, err)
	}
	return id, nil
}

func (q *Queue) PublishJSON(ctx context.Context, data interface{}, headers map[string]string) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}
	return q.Publish(ctx, b, headers)
}

// Run reads new entries and reclaims stale ones until ctx is cancelled.
func (q *Queue) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			q.readNew(ctx, handler)
			q.reclaim(ctx, handler)
		}
	}
}

func (q *Queue) readNew(ctx context.Context, handler Handler) {
	entries, err := q.adapter.XReadGroup(ctx, redis.ReadGroupArgs{
		Stream:   q.config.Stream,
		Group:    q.config.Group,
		Consumer: q.config.Consumer,
		Count:    q.config.BatchSize,
	})
	if err != nil {
		if !errors.Is(err, redis.NilError) && ctx.Err() == nil {
			logger.Error("stream read failed", "stream", q.config.Stream, "error", err)
		}
		return
	}
	for _, e := range entries {
		msg := q.decode(e)
		msg.Deliveries = 1
		q.dispatch(ctx, handler, msg)
	}
}

func (q *Queue) reclaim(ctx context.Context, handler Handler) {
	pending, err := q.adapter.XPendingEntries(ctx, q.config.Stream, q.config.Group, q.config.BatchSize)
	if err != nil || len(pending) == 0 {
		return
	}

	deliveries := make(map[string]int64, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		if p.Idle >= q.config.ClaimAfter {
			ids = append(ids, p.ID)
			deliveries[p.ID] = p.Deliveries
		}
	}
	if len(ids) == 0 {
		return
	}

	entries, err := q.adapter.XClaim(ctx, q.config.Stream, q.config.Group, q.config.Consumer, q.config.ClaimAfter, ids...)
	if err != nil {
		logger.Warn("stream claim failed", "stream", q.config.Stream, "count", len(ids), "error", err)
		return
	}
	for _, e := range entries {
		msg := q.decode(e)
		// XCLAIM counts as one more delivery.
		msg.Deliveries = deliveries[e.ID] + 1
		if msg.Deliveries > q.config.MaxDeliveries {
			logger.Warn("event exceeded delivery budget",
				"stream", q.config.Stream,
				"id", msg.ID,
				"deliveries", msg.Deliveries)
			_ = msg.DeadLetter("delivery budget exhausted")
			continue
		}
		q.dispatch(ctx, handler, msg)
	}
}

func (q *Queue) dispatch(ctx context.Context, handler Handler, msg *Message) {
	hctx, cancel := context.WithTimeout(ctx, q.config.ClaimAfter)
	defer cancel()

	if err := handler(hctx, msg); err != nil {
		logger.Warn("event handler failed, leaving pending",
			"stream", q.config.Stream,
			"id", msg.ID,
			"deliveries", msg.Deliveries,
			"error", err)
		return
	}
	if !msg.isSettled() {
		if err := msg.Ack(); err != nil {
			logger.Error("event ack failed", "stream", q.config.Stream, "id", msg.ID, "error", err)
		}
	}
}

func (q *Queue) ack(id string) error {
	return q.adapter.XAck(context.Background(), q.config.Stream, q.config.Group, id)
}

func (q *Queue) deadLetter(msg *Message, reason string) {
	if !q.config.DeadLetter {
		return
	}
	values := map[string]interface{}{
		fieldData:       string(msg.Data),
		"original_id":   msg.ID,
		"deliveries":    msg.Deliveries,
		"reason":        reason,
		"dead_at":       time.Now().UTC().Format(time.RFC3339Nano),
		"origin_stream": q.config.Stream,
	}
	for k, v := range msg.Headers {
		values[headerPrefix+k] = v
	}
	if _, err := q.adapter.XAdd(context.Background(), q.deadLetterStream(), 0, values); err != nil {
		logger.Error("dead-letter publish failed", "stream", q.config.Stream, "id", msg.ID, "error", err)
		return
	}
	prom.IncDeadLettered(q.config.Stream)
}

func (q *Queue) decode(e redis.StreamMessage) *Message {
	msg := &Message{ID: e.ID, Headers: make(map[string]string), queue: q}
	for k, v := range e.Values {
		s := fmt.Sprint(v)
		switch {
		case k == fieldData:
			msg.Data = []byte(s)
		case k == fieldPublishedAt:
			if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
				msg.PublishedAt = t
			}
		case strings.HasPrefix(k, headerPrefix):
			msg.Headers[strings.TrimPrefix(k, headerPrefix)] = s
		}
	}
	return msg
}

// Stats reports the stream length and the group's pending entries.
func (q *Queue) Stats() (*Stats, error) {
	ctx := context.Background()
	length, err := q.adapter.XLen(ctx, q.config.Stream)
	if err != nil {
		return nil, err
	}
	st := &Stats{Length: length}
	pending, err := q.adapter.XPendingSummary(ctx, q.config.Stream, q.config.Group)
	if err == nil {
		st.Pending = pending.Count
		st.Consumers = len(pending.Consumers)
	}
	return st, nil
}

// DeadLetterLen is the size of the dead-letter stream.
func (q *Queue) DeadLetterLen() (int64, error) {
	return q.adapter.XLen(context.Background(), q.deadLetterStream())
}

func (q *Queue) deadLetterStream() string {
	return q.config.Stream + ":dlq"
}
