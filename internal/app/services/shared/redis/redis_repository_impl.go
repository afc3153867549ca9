package redis

import (
	"context"
	"strconv"
	"time"

	"clinic-booking-service/internal/app/contracts"
	"clinic-booking-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

type redisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) contracts.RedisRepository {
	return &redisRepository{client: client}
}

func (r *redisRepository) Delete(ctx context.Context, key string) error {
	err := r.client.Del(ctx, key).Err()
	if err != nil {
		return exceptions.ErrRedisDelete(err)
	}
	return err
}

func (r *redisRepository) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return exceptions.ErrCannotMarshalJSON(err)
	}

	err = r.client.Set(ctx, key, jsonValue, exp).Err()
	if err != nil {
		return exceptions.ErrRedisSet(err)
	}
	return err
}

func (r *redisRepository) Get(ctx context.Context, key string) (string, error) {
	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return data, exceptions.ErrRedisGetNoData(err, key)
	}

	return data, err
}

func (r *redisRepository) TrySetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return false, exceptions.ErrCannotMarshalJSON(err)
	}

	acquired, err := r.client.SetNX(ctx, key, jsonValue, exp).Result()
	if err != nil {
		return false, exceptions.ErrRedisSetNX(err)
	}
	return acquired, nil
}

func (r *redisRepository) ZAdd(ctx context.Context, key string, score float64, member string) error {
	err := r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
	if err != nil {
		return exceptions.ErrRedisZAdd(err)
	}
	return nil
}

func (r *redisRepository) ZRangeByScoreWithLimit(ctx context.Context, key string, min, max float64, limit int64) ([]string, error) {
	members, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{
		Min:   strconv.FormatFloat(min, 'f', -1, 64),
		Max:   strconv.FormatFloat(max, 'f', -1, 64),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, exceptions.ErrRedisZRangeByScore(err)
	}
	return members, nil
}

func (r *redisRepository) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	values := make([]interface{}, 0, len(members))
	for _, m := range members {
		values = append(values, m)
	}
	removed, err := r.client.ZRem(ctx, key, values...).Result()
	if err != nil {
		return 0, exceptions.ErrRedisZRem(err)
	}
	return removed, nil
}
