package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const turnsKeyPrefix = "chat_turns:"

// RedisStore keeps each user's turns in a Redis list. User existence is
// answered by the identity store, since an empty list and a missing key look
// the same to Redis.
type RedisStore struct {
	redis     *redis.Client
	directory UserDirectory
	tracer    trace.Tracer
}

func NewRedisStore(redisClient *redis.Client, directory UserDirectory) *RedisStore {
	if redisClient == nil {
		panic("chat: redis client cannot be nil")
	}
	if directory == nil {
		panic("chat: redis store requires a user directory")
	}
	return &RedisStore{
		redis:     redisClient,
		directory: directory,
		tracer:    otel.Tracer("geminichat.internal.chat.redis_store"),
	}
}

func (s *RedisStore) Turns(ctx context.Context, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "chat.redis.turns")
	defer span.End()

	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}
	raw, err := s.redis.LRange(ctx, turnsKey(userID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: load turns: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("chat: decode turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, userID string, turn Turn) error {
	ctx, span := s.tracer.Start(ctx, "chat.redis.append")
	defer span.End()

	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("chat: marshal turn: %w", err)
	}
	if err := s.redis.RPush(ctx, turnsKey(userID), data).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveLast(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.redis.remove_last")
	defer span.End()

	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	err := s.redis.RPop(ctx, turnsKey(userID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return fmt.Errorf("chat: remove last turn: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.redis.clear")
	defer span.End()

	if err := s.ensureUser(ctx, userID); err != nil {
		return err
	}
	if err := s.redis.Del(ctx, turnsKey(userID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: clear turns: %w", err)
	}
	return nil
}

func (s *RedisStore) ensureUser(ctx context.Context, userID string) error {
	ok, err := s.directory.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("chat: lookup user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func turnsKey(userID string) string {
	return turnsKeyPrefix + userID
}
