package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
)

const keyPrefix = "chatbot:memory:"

// RedisStore keeps each conversation's turns in a Redis list, one JSON
// document per turn, refreshed with a TTL on every save.
type RedisStore struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, limit int, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, limit: limit, ttl: ttl}
}

func Key(conversationID string) string {
	return keyPrefix + conversationID
}

func (s *RedisStore) Load(ctx context.Context, conversationID string) (*ConversationMemory, error) {
	vals, err := s.client.LRange(ctx, Key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewMemoryStoreFailedError(err)
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			return nil, apperrors.NewMemoryStoreFailedError(fmt.Errorf("decode turn: %w", err))
		}
		turns = append(turns, t)
	}
	return FromTurns(s.limit, turns), nil
}

// Save replaces the stored list with m's turns in one transaction.
func (s *RedisStore) Save(ctx context.Context, conversationID string, m *ConversationMemory) error {
	turns := m.Turns()
	values := make([]interface{}, 0, len(turns))
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return apperrors.NewMemoryStoreFailedError(err)
		}
		values = append(values, string(data))
	}

	key := Key(conversationID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			if s.ttl > 0 {
				pipe.Expire(ctx, key, s.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewMemoryStoreFailedError(err)
	}
	return nil
}
