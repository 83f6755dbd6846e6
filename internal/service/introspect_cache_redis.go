package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisMissCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisMissCache(client redis.UniversalClient, prefix string) *RedisMissCache {
	if prefix == "" {
		prefix = "introspect_miss"
	}
	return &RedisMissCache{client: client, prefix: prefix}
}

func (c *RedisMissCache) Get(ctx context.Context, subject string) (bool, error) {
	if c.client == nil {
		return false, nil
	}
	_, err := c.client.Get(ctx, c.key(subject)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisMissCache) Set(ctx context.Context, subject string, ttl time.Duration) error {
	if c.client == nil || ttl <= 0 {
		return nil
	}
	key := c.key(subject)
	index := c.indexKey()
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, key, "1", ttl)
	pipe.SAdd(ctx, index, key)
	pipe.Expire(ctx, index, ttl+time.Minute)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisMissCache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	index := c.indexKey()
	keys, err := c.client.SMembers(ctx, index).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	pipe := c.client.TxPipeline()
	if len(keys) > 0 {
		pipe.Del(ctx, keys...)
	}
	pipe.Del(ctx, index)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *RedisMissCache) key(subject string) string {
	return fmt.Sprintf("%s:data:%s", c.prefix, missCacheKey(subject))
}

func (c *RedisMissCache) indexKey() string {
	return fmt.Sprintf("%s:index", c.prefix)
}
