package eligibility

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/console-zone/rental/internal/storage/models"
)

// ErrCacheMiss is returned by a Cache when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the key/value store used by CachedDirectory.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(addr, password string, db int, log *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("redis connected", zap.String("addr", addr))
	return &RedisCache{client: rdb}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedDirectory caches successful lookups of another Directory.
// Cache failures fall through to the wrapped directory.
type CachedDirectory struct {
	next  Directory
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedDirectory wraps next with cache.
func NewCachedDirectory(next Directory, cache Cache, ttl time.Duration, log *zap.Logger) *CachedDirectory {
	return &CachedDirectory{next: next, cache: cache, ttl: ttl, log: log}
}

func cacheKey(userID string) string {
	return fmt.Sprintf("requester:%s", userID)
}

func (d *CachedDirectory) Lookup(ctx context.Context, userID string) (*models.Requester, error) {
	key := cacheKey(userID)

	b, err := d.cache.Get(ctx, key)
	switch {
	case err == nil:
		var r models.Requester
		if jerr := json.Unmarshal(b, &r); jerr == nil {
			return &r, nil
		}
		d.log.Warn("discarding undecodable cache entry", zap.String("key", key))
	case !errors.Is(err, ErrCacheMiss):
		d.log.Warn("requester cache read failed", zap.String("key", key), zap.Error(err))
	}

	r, err := d.next.Lookup(ctx, userID)
	if err != nil {
		return nil, err
	}

	if b, err := json.Marshal(r); err == nil {
		if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
			d.log.Warn("requester cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return r, nil
}
