package schema

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/models"
)

const CacheKey = "chatbot:schema:snapshot"

// Cache stores the last snapshot in Redis for ttl.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get reports a miss as (nil, false, nil).
func (c *Cache) Get(ctx context.Context) (models.SchemaSnapshot, bool, error) {
	val, err := c.client.Get(ctx, CacheKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var snapshot models.SchemaSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		return nil, false, err
	}
	return snapshot, true, nil
}

func (c *Cache) Set(ctx context.Context, snapshot models.SchemaSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKey, data, c.ttl).Err()
}
