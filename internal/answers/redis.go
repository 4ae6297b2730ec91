package answers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore keeps answer sets in Redis. SET of the full JSON document is
// atomic, so a crash mid-session never exposes a partial set.
type RedisStore struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed answer store.
func NewRedisStore(client *redis.Client, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		redis:  client,
		logger: logger.With().Str("component", "answer_store").Logger(),
	}
}

// Save writes the complete set under the exam's storage key. No TTL: an
// abandoned attempt must stay resumable until it is submitted.
func (s *RedisStore) Save(ctx context.Context, examID int64, set Set) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal answer set: %w", err)
	}
	return s.redis.Set(ctx, StorageKey(examID), data, 0).Err()
}

// Load returns the persisted set, or an empty one when nothing is stored.
func (s *RedisStore) Load(ctx context.Context, examID int64) (Set, error) {
	data, err := s.redis.Get(ctx, StorageKey(examID)).Bytes()
	if err == redis.Nil {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get answer set: %w", err)
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		// A corrupted document is unrecoverable; starting clean beats
		// blocking the whole attempt.
		s.logger.Warn().Err(err).Int64("exam_id", examID).Msg("discarding corrupted answer set")
		return Set{}, nil
	}
	return set, nil
}

// Clear erases the persisted set.
func (s *RedisStore) Clear(ctx context.Context, examID int64) error {
	return s.redis.Del(ctx, StorageKey(examID)).Err()
}
