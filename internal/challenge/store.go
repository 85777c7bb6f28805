package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengePrefix = "challenge:v1:"
	consumedPrefix  = "challenge:v1:used:"
)

// Store persists issued challenges with consume-once semantics.
type Store interface {
	Save(ctx context.Context, ch Challenge) error
	// Find peeks at a challenge without consuming it. Returns ErrNotFound
	// for unknown ids and ErrAlreadyUsed for consumed ones.
	Find(ctx context.Context, requestID string) (Challenge, error)
	// Consume atomically retrieves and invalidates a challenge; only one
	// caller can ever succeed for a given id.
	Consume(ctx context.Context, requestID string) (Challenge, error)
}

// RedisStore keeps challenges in Redis so issuance survives restarts and
// consume-once holds across instances. Keys live for twice the challenge
// TTL: a verify attempt inside (TTL, 2×TTL] can still be reported as
// expired rather than unknown, and consumed ids leave a tombstone so a
// replay is reported as already used.
type RedisStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewRedisStore builds a Redis-backed challenge store.
func NewRedisStore(cache *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("challenge ttl must be positive")
	}
	return &RedisStore{cache: cache, ttl: ttl}, nil
}

// Save stores a freshly issued challenge.
func (s *RedisStore) Save(ctx context.Context, ch Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("encode challenge: %w", err)
	}

	ok, err := s.cache.SetNX(ctx, challengePrefix+ch.RequestID, payload, 2*s.ttl).Result()
	if err != nil {
		return fmt.Errorf("store challenge: %w", err)
	}
	if !ok {
		return fmt.Errorf("challenge %s already exists", ch.RequestID)
	}
	return nil
}

// Find looks a challenge up without consuming it.
func (s *RedisStore) Find(ctx context.Context, requestID string) (Challenge, error) {
	raw, err := s.cache.Get(ctx, challengePrefix+requestID).Result()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, s.missing(ctx, requestID)
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("lookup challenge: %w", err)
	}
	return decode(raw)
}

// Consume removes the challenge and leaves a tombstone. GETDEL makes the
// retrieval-and-invalidation a single atomic step, so concurrent verifies
// cannot both win.
func (s *RedisStore) Consume(ctx context.Context, requestID string) (Challenge, error) {
	raw, err := s.cache.GetDel(ctx, challengePrefix+requestID).Result()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, s.missing(ctx, requestID)
	}
	if err != nil {
		return Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}

	if err := s.cache.Set(ctx, consumedPrefix+requestID, "1", 2*s.ttl).Err(); err != nil {
		return Challenge{}, fmt.Errorf("mark challenge consumed: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) missing(ctx context.Context, requestID string) error {
	used, err := s.cache.Exists(ctx, consumedPrefix+requestID).Result()
	if err != nil {
		return fmt.Errorf("lookup consumed challenge: %w", err)
	}
	if used > 0 {
		return ErrAlreadyUsed
	}
	return ErrNotFound
}

func decode(raw string) (Challenge, error) {
	var ch Challenge
	if err := json.Unmarshal([]byte(raw), &ch); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return ch, nil
}
