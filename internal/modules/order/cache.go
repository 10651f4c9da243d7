// README: Redis snapshot cache for dashboard reads (stale-tolerant).
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kurier/internal/types"
)

const (
	cacheKeyPrefix = "order:%s"
	// Dashboard refresh intervals are short; snapshots only need to survive
	// between polls.
	cacheTTL = 5 * time.Minute
)

type Cache struct {
	redis *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{redis: client}
}

func (c *Cache) Put(ctx context.Context, o *Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, cacheKey(o.ID), data, cacheTTL).Err()
}

func (c *Cache) Get(ctx context.Context, id types.ID) (*Order, error) {
	data, err := c.redis.Get(ctx, cacheKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var o Order
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (c *Cache) Invalidate(ctx context.Context, id types.ID) error {
	return c.redis.Del(ctx, cacheKey(id)).Err()
}

func cacheKey(id types.ID) string {
	return fmt.Sprintf(cacheKeyPrefix, string(id))
}
