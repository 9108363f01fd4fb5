package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultLinksKey = "eval:public_links"

// RedisLinkFlags keeps the public link allow-list in one Redis hash so that
// several server instances share it.
type RedisLinkFlags struct {
	rdb redis.Cmdable
	key string
}

func NewRedisLinkFlags(rdb redis.Cmdable, key string) *RedisLinkFlags {
	if key == "" {
		key = DefaultLinksKey
	}
	return &RedisLinkFlags{rdb: rdb, key: key}
}

func (r *RedisLinkFlags) GetPublicLink(ctx context.Context, teacher string) (bool, error) {
	v, err := r.rdb.HGet(ctx, r.key, teacher).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis hget: %w", err)
	}
	return v == "1", nil
}

func (r *RedisLinkFlags) SetPublicLink(ctx context.Context, teacher string, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	if err := r.rdb.HSet(ctx, r.key, teacher, v).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *RedisLinkFlags) ListPublicLinks(ctx context.Context) (map[string]bool, error) {
	all, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out := make(map[string]bool, len(all))
	for teacher, v := range all {
		out[teacher] = v == "1"
	}
	return out, nil
}
