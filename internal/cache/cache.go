// Package cache wraps the external key-value store used for dedup markers
// and maintenance bookkeeping.
package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// Get returns the value for key and whether it was present. A cache miss is
// not an error.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Flush evicts every key in the current database.
func (c *Cache) Flush(ctx context.Context) error {
	return c.rdb.FlushDB(ctx).Err()
}

type Stats struct {
	Keys            int64 `json:"keys"`
	UsedMemoryBytes int64 `json:"used_memory_bytes"`
}

// Stats reports aggregate cache utilization from DBSIZE and INFO memory.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.rdb.DBSize(ctx).Result()
	if err != nil {
		return Stats{}, err
	}
	info, err := c.rdb.Info(ctx, "memory").Result()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Keys: keys, UsedMemoryBytes: parseUsedMemory(info)}, nil
}

func parseUsedMemory(info string) int64 {
	for _, line := range strings.Split(info, "\n") {
		if v, ok := strings.CutPrefix(line, "used_memory:"); ok {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err == nil {
				return n
			}
		}
	}
	return 0
}
