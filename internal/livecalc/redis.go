package livecalc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// redisCmdable is the subset of go-redis used by RedisCache.
type redisCmdable interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// RedisCache shares live results across engine instances. Entries expire in
// Redis after the cache TTL.
type RedisCache struct {
	rdb redisCmdable
	ttl time.Duration
}

// NewRedisCache creates a Redis-backed cache. A non-positive ttl selects
// DefaultTTL.
func NewRedisCache(rdb redisCmdable, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrapf(err, "livecalc: ping redis %s", addr)
	}
	return rdb, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key Key) (*Entry, error) {
	raw, err := c.rdb.Get(ctx, key.String()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "livecalc: redis get %s", key)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, eris.Wrapf(err, "livecalc: decode cache entry %s", key)
	}
	return &e, nil
}

// Put implements Cache.
func (c *RedisCache) Put(ctx context.Context, key Key, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "livecalc: encode cache entry")
	}
	if err := c.rdb.Set(ctx, key.String(), raw, c.ttl).Err(); err != nil {
		return eris.Wrapf(err, "livecalc: redis set %s", key)
	}
	return nil
}
