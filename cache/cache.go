// Package cache keeps the food item catalog in a Redis sorted set, scored by
// food item id with the JSON-encoded item as member.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"canteen/logger"
	"canteen/models"
	"canteen/store"
)

const (
	DefaultKey = "food_items"
	DefaultTTL = 10 * time.Minute
)

type Options struct {
	Key string
	TTL time.Duration
}

// CatalogCache serves catalog reads from Redis and falls back to source when
// Redis is empty or unavailable.
type CatalogCache struct {
	rdb    *redis.Client
	source store.CatalogReader
	key    string
	ttl    time.Duration
	logger *logger.Logger
}

var _ store.CatalogReader = (*CatalogCache)(nil)

func New(rdb *redis.Client, source store.CatalogReader, log *logger.Logger, opts Options) *CatalogCache {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if log == nil {
		log = logger.Discard()
	}
	return &CatalogCache{
		rdb:    rdb,
		source: source,
		key:    opts.Key,
		ttl:    opts.TTL,
		logger: log.WithComponent("catalog_cache"),
	}
}

func (c *CatalogCache) List(ctx context.Context) ([]models.FoodItem, error) {
	members, err := c.rdb.ZRange(ctx, c.key, 0, -1).Result()
	if err != nil {
		c.logger.Warn("Failed to read catalog from redis", "error", err)
	}
	if err == nil && len(members) > 0 {
		if items, ok := c.decode(members); ok {
			return items, nil
		}
	}

	items, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.populate(ctx, items); err != nil {
		c.logger.Warn("Failed to populate catalog cache", "error", err)
	}
	return items, nil
}

func (c *CatalogCache) Lookup(ctx context.Context, id int64) (models.FoodItem, error) {
	score := strconv.FormatInt(id, 10)
	members, err := c.rdb.ZRangeByScore(ctx, c.key, &redis.ZRangeBy{Min: score, Max: score}).Result()
	if err != nil {
		c.logger.Warn("Failed to read food item from redis", "food_item_id", id, "error", err)
	}
	if err == nil && len(members) > 0 {
		if items, ok := c.decode(members[:1]); ok {
			return items[0], nil
		}
	}
	return c.source.Lookup(ctx, id)
}

// LookupByName is not cached.
func (c *CatalogCache) LookupByName(ctx context.Context, name string) (models.FoodItem, error) {
	return c.source.LookupByName(ctx, name)
}

// Refresh rereads the given food items from source and replaces their
// entries. Nothing is written while the catalog is not cached; the next List
// loads it whole.
func (c *CatalogCache) Refresh(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	exists, err := c.rdb.Exists(ctx, c.key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return nil
	}

	fresh := make(map[int64]models.FoodItem, len(ids))
	for _, id := range ids {
		item, err := c.source.Lookup(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		fresh[id] = item
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			score := strconv.FormatInt(id, 10)
			pipe.ZRemRangeByScore(ctx, c.key, score, score)
			item, ok := fresh[id]
			if !ok {
				continue
			}
			member, err := json.Marshal(item)
			if err != nil {
				return err
			}
			pipe.ZAdd(ctx, c.key, redis.Z{Score: float64(id), Member: member})
		}
		return nil
	})
	return err
}

// Invalidate drops the cached catalog.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}

func (c *CatalogCache) populate(ctx context.Context, items []models.FoodItem) error {
	if len(items) == 0 {
		return nil
	}
	members := make([]redis.Z, 0, len(items))
	for _, item := range items {
		member, err := json.Marshal(item)
		if err != nil {
			return err
		}
		members = append(members, redis.Z{Score: float64(item.ID), Member: member})
	}

	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key)
		pipe.ZAdd(ctx, c.key, members...)
		pipe.Expire(ctx, c.key, c.ttl)
		return nil
	})
	return err
}

func (c *CatalogCache) decode(members []string) ([]models.FoodItem, bool) {
	items := make([]models.FoodItem, 0, len(members))
	for _, member := range members {
		var item models.FoodItem
		if err := json.Unmarshal([]byte(member), &item); err != nil {
			c.logger.Warn("Dropping undecodable cache entry", "error", err)
			return nil, false
		}
		items = append(items, item)
	}
	return items, true
}
