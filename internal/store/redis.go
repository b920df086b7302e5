package store

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCommander adapts a go-redis client to the Commander interface.
// redis.Nil results are translated into (ok=false, nil) so callers never see
// the sentinel.
type redisCommander struct {
	client *redis.Client
}

// RedisOptions describes one handle against the store.
type RedisOptions struct {
	Host            string
	Port            int
	Password        string
	TLSEnabled      bool
	DB              int
	MaxRetries      int
	RetryBackoffCap time.Duration
}

// NewRedisCommander opens a go-redis client bound to the given logical
// database. The client dials lazily; transport-level retry and backoff are
// configured here once and apply to every command.
func NewRedisCommander(opts RedisOptions) Commander {
	ropts := &redis.Options{
		Addr:            fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password:        opts.Password,
		DB:              opts.DB,
		MaxRetries:      opts.MaxRetries,
		MaxRetryBackoff: opts.RetryBackoffCap,
	}
	if opts.TLSEnabled {
		ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &redisCommander{client: redis.NewClient(ropts)}
}

func (r *redisCommander) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCommander) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (r *redisCommander) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCommander) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *redisCommander) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *redisCommander) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCommander) HGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := r.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (r *redisCommander) HSet(ctx context.Context, key, field, value string) error {
	return r.client.HSet(ctx, key, field, value).Err()
}

func (r *redisCommander) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return r.client.HGetAll(ctx, key).Result()
}

func (r *redisCommander) HDel(ctx context.Context, key string, fields ...string) error {
	return r.client.HDel(ctx, key, fields...).Err()
}

func (r *redisCommander) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	return r.client.HIncrBy(ctx, key, field, incr).Err()
}

func (r *redisCommander) Batch(ctx context.Context, fn func(b BatchCommander) error) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return fn(&redisBatch{pipe: pipe, ctx: ctx})
	})
	return err
}

func (r *redisCommander) Close() error {
	return r.client.Close()
}

// redisBatch queues commands on a transactional pipeline.
type redisBatch struct {
	pipe redis.Pipeliner
	ctx  context.Context
}

func (b *redisBatch) HSet(key, field, value string) {
	b.pipe.HSet(b.ctx, key, field, value)
}

func (b *redisBatch) HDel(key string, fields ...string) {
	b.pipe.HDel(b.ctx, key, fields...)
}

func (b *redisBatch) HIncrBy(key, field string, incr int64) {
	b.pipe.HIncrBy(b.ctx, key, field, incr)
}
