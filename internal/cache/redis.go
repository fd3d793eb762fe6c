package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisTier is the network-backed tier-2, built over go-redis. Every
// operation degrades instead of propagating: an I/O failure on read is
// logged and treated as a miss, a failure on write is logged and
// dropped, so a tier-2 outage never fails a request.
type RedisTier struct {
	client  *redis.Client
	enabled bool
}

// RedisConfig configures the tier-2 backend.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewRedisTier builds a RedisTier. When cfg.Enabled is false, the
// returned tier performs no I/O and every operation is a documented
// no-op/miss.
func NewRedisTier(cfg RedisConfig) *RedisTier {
	if !cfg.Enabled {
		return &RedisTier{enabled: false}
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})
	return &RedisTier{client: client, enabled: true}
}

func (t *RedisTier) Get(ctx context.Context, key string) (string, error) {
	if !t.enabled {
		return "", ErrKeyNotFound
	}
	val, err := t.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrKeyNotFound
		}
		log.Warn().Err(err).Str("key", key).Msg("tier-2 cache read failed, treating as miss")
		return "", ErrKeyNotFound
	}
	return val, nil
}

func (t *RedisTier) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if !t.enabled {
		return nil
	}
	if err := t.client.Set(ctx, key, value, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("tier-2 cache write failed, dropping")
	}
	return nil
}

func (t *RedisTier) Delete(ctx context.Context, key string) error {
	if !t.enabled {
		return nil
	}
	if err := t.client.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("tier-2 cache delete failed, dropping")
	}
	return nil
}

// Clear removes keys scoped to prefix (prefix+"*"); a tier-2 clear is
// never allowed to sweep keys outside this cache's own namespace.
func (t *RedisTier) Clear(ctx context.Context, prefix string) error {
	if !t.enabled {
		return nil
	}
	pattern := prefix + "*"
	keys, err := t.client.Keys(ctx, pattern).Result()
	if err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("tier-2 cache clear scan failed, dropping")
		return nil
	}
	if len(keys) == 0 {
		return nil
	}
	if err := t.client.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Msg("tier-2 cache clear delete failed, dropping")
	}
	return nil
}

// Stats is best-effort for tier-2; this system relies on the tier-1
// hit rate for the published cache-health metric (see Manager), so
// tier-2 stats are informational only.
func (t *RedisTier) Stats() TierStats {
	if !t.enabled {
		return TierStats{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	size, err := t.client.DBSize(ctx).Result()
	if err != nil {
		return TierStats{}
	}
	return TierStats{Size: size}
}

func (t *RedisTier) HealthCheck(ctx context.Context) error {
	if !t.enabled {
		return nil
	}
	const probeKey = "__health__"
	if err := t.client.Set(ctx, probeKey, "ok", time.Second).Err(); err != nil {
		return err
	}
	if err := t.client.Get(ctx, probeKey).Err(); err != nil {
		return err
	}
	return t.client.Del(ctx, probeKey).Err()
}

func (t *RedisTier) Close() error {
	if !t.enabled {
		return nil
	}
	return t.client.Close()
}
