package infra

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auroramedia/gramflow/config"
)

type RedisClient struct {
	Client *redis.Client
}

func InitRedisClient(cfg *config.EnvConfig) *RedisClient {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.Database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}

	log.Println("Connected to Redis:", cfg.Redis.Port+" on "+cfg.Redis.Host)

	return &RedisClient{Client: client}
}

func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.Client.Del(ctx, keys...).Err()
}

func (r *RedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	return r.Client.SetNX(ctx, key, data, expiration).Result()
}

func (r *RedisClient) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

const tickLeaseKey = "gramflow:scheduler:tick"

// TickLease serializes scheduler ticks across replicas with a Redis SetNX
// lease. Only one holder runs a tick at a time; the TTL bounds how long a
// crashed holder can block the others.
type TickLease struct {
	redis *RedisClient
	TTL   time.Duration
}

func NewTickLease(redis *RedisClient, ttl time.Duration) *TickLease {
	return &TickLease{redis: redis, TTL: ttl}
}

// TryAcquire returns a release func when the lease was taken, ok=false when
// another holder has it.
func (l *TickLease) TryAcquire(ctx context.Context) (func(), bool, error) {
	ok, err := l.redis.SetNX(ctx, tickLeaseKey, time.Now().UTC().Format(time.RFC3339), l.TTL)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		_ = l.redis.Delete(context.Background(), tickLeaseKey)
	}
	return release, true, nil
}
