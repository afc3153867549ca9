package contracts

import (
	"context"
	"time"
)

type RedisRepository interface {
	Delete(ctx context.Context, key string) error
	Set(ctx context.Context, key string, value interface{}, exp time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	TrySetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZRangeByScoreWithLimit(ctx context.Context, key string, min, max float64, limit int64) ([]string, error)
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
}
