package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/verityapp/verity-server/internal/config"
)

// geoIndexKey is the sorted set backing the discovery geo index.
const geoIndexKey = "discovery:geo"

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

// NewFromClient wraps an existing client. Tests hand in a miniredis-backed
// client here.
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{Client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForAdmirerCount generates the key for a user's cached admirer count.
func (c *RedisCache) KeyForAdmirerCount(userID uint64) string {
	return fmt.Sprintf("admirers:count:%d", userID)
}

func (c *RedisCache) SetAdmirerCount(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForAdmirerCount(userID), count, time.Hour).Err()
}

func (c *RedisCache) GetAdmirerCount(ctx context.Context, userID uint64) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForAdmirerCount(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, c.KeyForAdmirerCount(userID), time.Hour).Err()
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// GeoUpsert places a profile into the discovery geo index.
func (c *RedisCache) GeoUpsert(ctx context.Context, userID uint64, lat, lng float64) error {
	return c.Client.GeoAdd(ctx, geoIndexKey, &redis.GeoLocation{
		Name:      strconv.FormatUint(userID, 10),
		Latitude:  lat,
		Longitude: lng,
	}).Err()
}

// GeoRemove drops a profile from the discovery geo index.
func (c *RedisCache) GeoRemove(ctx context.Context, userID uint64) error {
	return c.Client.ZRem(ctx, geoIndexKey, strconv.FormatUint(userID, 10)).Err()
}

// Nearby holds a geo index hit.
type Nearby struct {
	UserID     uint64
	DistanceKM float64
}

// GeoNearby returns up to count profiles within radiusKM of the given
// point, nearest first.
func (c *RedisCache) GeoNearby(ctx context.Context, lat, lng, radiusKM float64, count int) ([]Nearby, error) {
	locs, err := c.Client.GeoRadius(ctx, geoIndexKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:   radiusKM,
		Unit:     "km",
		WithDist: true,
		Count:    count,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	results := make([]Nearby, 0, len(locs))
	for _, loc := range locs {
		id, err := strconv.ParseUint(loc.Name, 10, 64)
		if err != nil {
			continue
		}
		results = append(results, Nearby{UserID: id, DistanceKM: loc.Dist})
	}
	return results, nil
}
