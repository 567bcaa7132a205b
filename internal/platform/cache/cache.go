// Package cache wraps the Redis (or Dragonfly) client and provides the JSON
// read-through helpers used in front of slower lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by GetJSON when the key does not exist.
var ErrMiss = errors.New("cache miss")

const namespace = "progress"

// Cache owns a Redis client.
type Cache struct {
	Client *redis.Client
}

// ParseURL validates a redis:// or rediss:// connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects and pings. Reads and writes use short timeouts so a slow
// cache degrades to a miss instead of stalling requests.
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return &Cache{Client: client}, nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck backs the readiness check.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Key builds a namespaced key, e.g. Key("classrooms", "ada") is
// "progress:classrooms:ada".
func Key(parts ...string) string {
	return namespace + ":" + strings.Join(parts, ":")
}

// GetJSON decodes the value at key into v. It returns ErrMiss for an absent
// key; any other error means the cache could not answer.
func GetJSON(ctx context.Context, rdb redis.Cmdable, key string, v any) error {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v as JSON under key for ttl.
func SetJSON(ctx context.Context, rdb redis.Cmdable, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes keys; absent keys are not an error.
func Delete(ctx context.Context, rdb redis.Cmdable, keys ...string) error {
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", strings.Join(keys, ","), err)
	}
	return nil
}

// Generation reads the counter at key, treating an absent key as zero.
func Generation(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	n, err := rdb.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	return n, nil
}

// Bump increments the counter at key. Entries stamped with an older
// generation are stale from then on.
func Bump(ctx context.Context, rdb redis.Cmdable, key string) (int64, error) {
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("bumping %s: %w", key, err)
	}
	return n, nil
}
