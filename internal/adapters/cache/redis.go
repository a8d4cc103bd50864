package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/loanoffer/internal/domain/model"
	"github.com/okian/loanoffer/pkg/metrics"
)

// RedisConfig holds connection settings for the Redis backend.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisClient builds a client from cfg. It does not dial.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Redis is a Cache storing JSON-encoded responses with a TTL.
type Redis struct {
	client redis.Cmdable
}

var _ Cache = (*Redis)(nil)

// NewRedis wraps client.
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

// Get loads and decodes key.
func (r *Redis) Get(ctx context.Context, key string) (model.LoanOfferResponse, error) {
	if err := checkKey(key); err != nil {
		return model.LoanOfferResponse{}, err
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCacheLookup(BackendRedis, "miss")
		return model.LoanOfferResponse{}, ErrMiss
	}
	if err != nil {
		metrics.RecordCacheLookup(BackendRedis, "error")
		return model.LoanOfferResponse{}, fmt.Errorf("get %s: %w: %w", key, ErrUnavailable, err)
	}

	var resp model.LoanOfferResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		metrics.RecordCacheLookup(BackendRedis, "error")
		return model.LoanOfferResponse{}, fmt.Errorf("decode %s: %w: %w", key, ErrCorrupt, err)
	}
	metrics.RecordCacheLookup(BackendRedis, "hit")
	return resp, nil
}

// Set encodes resp and stores it with ttl.
func (r *Redis) Set(ctx context.Context, key string, resp model.LoanOfferResponse, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w: %w", key, ErrUnavailable, err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w: %w", key, ErrUnavailable, err)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
