package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"sats_display/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisRateCache shares rates between instances. Entries carry their own
// expiry and are also written with a Redis TTL.
type RedisRateCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisRateCache wraps an existing client.
func NewRedisRateCache(client *redis.Client, prefix string, logger *slog.Logger) *RedisRateCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisRateCache{client: client, prefix: prefix, logger: logger}
}

// NewRedisClient creates a client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisRateCache) key(pair domain.CurrencyPair) string {
	return r.prefix + "rate:" + pair.String()
}

// Get returns the cached rate while it is unexpired.
func (r *RedisRateCache) Get(ctx context.Context, pair domain.CurrencyPair) (domain.ExchangeRate, bool, error) {
	val, err := r.client.Get(ctx, r.key(pair)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "pair", pair.String())
		return domain.ExchangeRate{}, false, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "pair", pair.String(), "error", err)
		return domain.ExchangeRate{}, false, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(val, &entry); err != nil {
		r.logger.Error("Redis cache unmarshal error", "pair", pair.String(), "error", err)
		return domain.ExchangeRate{}, false, err
	}
	if !entry.Valid(time.Now()) {
		return domain.ExchangeRate{}, false, nil
	}
	return entry.Rate, true, nil
}

// Set stores a rate for ttl.
func (r *RedisRateCache) Set(ctx context.Context, rate domain.ExchangeRate, ttl time.Duration) error {
	data, err := json.Marshal(domain.CacheEntry{Rate: rate, ExpiresAt: time.Now().Add(ttl)})
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(rate.Pair), data, ttl).Err(); err != nil {
		r.logger.Error("Redis cache set error", "pair", rate.Pair.String(), "error", err)
		return err
	}
	r.logger.Debug("Redis cache set", "pair", rate.Pair.String(), "rate", rate.Rate.String(), "ttl", ttl)
	return nil
}

// Clear deletes every rate key under the prefix.
func (r *RedisRateCache) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"rate:*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping reports whether Redis is reachable.
func (r *RedisRateCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
