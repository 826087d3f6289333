package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/nimasrn/campaign-mailer/pkg/redis"
)

var (
	ErrAlreadyProcessed  = errors.New("event already processed")
	ErrInFlight          = errors.New("event is being processed by another consumer")
	ErrAttemptsExhausted = errors.New("event processing attempts exhausted")
)

type IdempotencyConfig struct {
	// LockTTL bounds how long a crashed consumer can hold an event.
	LockTTL time.Duration
	// DoneTTL is how long a processed marker suppresses redeliveries.
	DoneTTL     time.Duration
	MaxAttempts int
	KeyPrefix   string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:     30 * time.Second,
		DoneTTL:     24 * time.Hour,
		MaxAttempts: 3,
		KeyPrefix:   "delivery-event:",
	}
}

// Idempotency guards event handling with three Redis keys per event id: a
// processed marker, a short-lived lock and a failed attempt counter.
type Idempotency struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotency(adapter redis.RedisAdapter, config IdempotencyConfig) *Idempotency {
	def := DefaultIdempotencyConfig()
	if config.LockTTL <= 0 {
		config.LockTTL = def.LockTTL
	}
	if config.DoneTTL <= 0 {
		config.DoneTTL = def.DoneTTL
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	return &Idempotency{redis: adapter, config: config}
}

// Claim is held by the consumer that won the lock for an event.
type Claim struct {
	EventID string
	// Attempt is the number of earlier failed attempts.
	Attempt int
	held    bool
}

func (s *Idempotency) doneKey(id string) string     { return s.config.KeyPrefix + "done:" + id }
func (s *Idempotency) lockKey(id string) string     { return s.config.KeyPrefix + "lock:" + id }
func (s *Idempotency) attemptsKey(id string) string { return s.config.KeyPrefix + "attempts:" + id }

// Claim takes the processing lock for eventID. It fails with
// ErrAlreadyProcessed, ErrAttemptsExhausted or ErrInFlight.
func (s *Idempotency) Claim(ctx context.Context, eventID string) (*Claim, error) {
	done, err := s.Processed(ctx, eventID)
	if err != nil {
		// a duplicate row is caught by the unique event_id, so keep going
		logger.Warn("processed marker lookup failed", "event_id", eventID, "error", err)
	} else if done {
		return nil, ErrAlreadyProcessed
	}

	attempts, err := s.Attempts(ctx, eventID)
	if err != nil {
		logger.Warn("attempt counter lookup failed", "event_id", eventID, "error", err)
	}
	if attempts >= s.config.MaxAttempts {
		return nil, fmt.Errorf("%w: event_id=%s attempts=%d", ErrAttemptsExhausted, eventID, attempts)
	}

	ok, err := s.redis.SetNX(ctx, s.lockKey(eventID), []byte(strconv.FormatInt(time.Now().UnixNano(), 10)), s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire event lock: %w", err)
	}
	if !ok {
		return nil, ErrInFlight
	}

	logger.Debug("event claimed", "event_id", eventID, "attempt", attempts)
	return &Claim{EventID: eventID, Attempt: attempts, held: true}, nil
}

// Complete writes the processed marker and clears the lock and counter.
func (s *Idempotency) Complete(ctx context.Context, c *Claim) error {
	if err := s.redis.Set(ctx, s.doneKey(c.EventID), []byte("1"), s.config.DoneTTL); err != nil {
		return fmt.Errorf("mark event processed: %w", err)
	}
	if err := s.redis.Del(ctx, s.attemptsKey(c.EventID)); err != nil {
		logger.Warn("attempt counter cleanup failed", "event_id", c.EventID, "error", err)
	}
	return s.Release(ctx, c)
}

// Fail counts a failed attempt and frees the lock for the next delivery.
func (s *Idempotency) Fail(ctx context.Context, c *Claim, reason error) {
	next, err := s.redis.Incr(ctx, s.attemptsKey(c.EventID), s.config.DoneTTL)
	if err != nil {
		next = int64(c.Attempt) + 1
		logger.Error("attempt counter update failed", "event_id", c.EventID, "error", err)
	}
	_ = s.Release(ctx, c)

	logger.Warn("event processing failed",
		"event_id", c.EventID,
		"attempt", next,
		"max_attempts", s.config.MaxAttempts,
		"reason", reason)
}

func (s *Idempotency) Release(ctx context.Context, c *Claim) error {
	if c == nil || !c.held {
		return nil
	}
	if err := s.redis.Del(ctx, s.lockKey(c.EventID)); err != nil {
		return fmt.Errorf("release event lock: %w", err)
	}
	c.held = false
	return nil
}

func (s *Idempotency) Processed(ctx context.Context, eventID string) (bool, error) {
	return s.redis.Exists(ctx, s.doneKey(eventID))
}

func (s *Idempotency) Attempts(ctx context.Context, eventID string) (int, error) {
	b, err := s.redis.Get(ctx, s.attemptsKey(eventID))
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, fmt.Errorf("corrupt attempt counter %q: %w", b, err)
	}
	return n, nil
}
