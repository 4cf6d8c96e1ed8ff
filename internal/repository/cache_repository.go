package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	customError "github.com/segyhp/repayment-engine/pkg/errors"
)

type redisCache struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCache(client redis.UniversalClient, prefix string) CacheRepository {
	return &redisCache{client: client, prefix: prefix}
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, customError.WrapCacheError(err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, customError.WrapCacheError(err)
	}
	return true, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	body, err := json.Marshal(value)
	if err != nil {
		return customError.WrapCacheError(err)
	}
	if err := r.client.Set(ctx, r.prefix+key, body, ttl).Err(); err != nil {
		return customError.WrapCacheError(err)
	}
	return nil
}
