package store

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"futures-trader-core/internal/config"
	"futures-trader-core/internal/logging"
)

// TraderConfigTTL is how long a cached TraderConfig is trusted before a
// reload re-reads the store.
const TraderConfigTTL = 5 * time.Minute

// ConfigCache is a Redis-backed cache for TraderConfig with graceful
// degradation: a small circuit breaker that stops hitting Redis after
// repeated failures and falls back to direct repository reads until a
// recovery window elapses.
type ConfigCache struct {
	client *redis.Client
	repo   *Repository
	log    *logging.Logger

	mu           sync.Mutex
	healthy      bool
	failureCount int
	lastFailure  time.Time

	maxFailures     int
	recoveryBackoff time.Duration
}

// NewConfigCache builds a ConfigCache. If cfg.Enabled is false, the
// returned cache always misses and every Get falls through to repo.
func NewConfigCache(cfg config.RedisConfig, repo *Repository) *ConfigCache {
	cc := &ConfigCache{
		repo:            repo,
		log:             logging.WithComponent("store.cache"),
		healthy:         cfg.Enabled,
		maxFailures:     3,
		recoveryBackoff: 5 * time.Second,
	}
	if cfg.Enabled {
		cc.client = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		})
	}
	return cc
}

func (cc *ConfigCache) available() bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if cc.client == nil {
		return false
	}
	if cc.healthy {
		return true
	}
	if time.Since(cc.lastFailure) > cc.recoveryBackoff {
		// allow one probing attempt through
		return true
	}
	return false
}

func (cc *ConfigCache) recordResult(err error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err != nil {
		cc.failureCount++
		cc.lastFailure = time.Now()
		if cc.failureCount >= cc.maxFailures {
			cc.healthy = false
		}
		return
	}
	cc.failureCount = 0
	cc.healthy = true
}

func traderConfigKey(id int) string {
	return "trader:" + strconv.Itoa(id) + ":config"
}

// GetTraderConfig returns a cached TraderConfig, or (zero, false) on a
// cache miss/degraded cache. Callers fall back to
// Repository.LoadTraderConfigs on a miss.
func (cc *ConfigCache) GetTraderConfig(ctx context.Context, id int) (TraderConfig, bool) {
	if !cc.available() {
		return TraderConfig{}, false
	}

	raw, err := cc.client.Get(ctx, traderConfigKey(id)).Bytes()
	cc.recordResult(errIfNotNil(err, redis.Nil))
	if err != nil {
		return TraderConfig{}, false
	}

	var tc TraderConfig
	if err := json.Unmarshal(raw, &tc); err != nil {
		cc.log.Warn("cached trader config unmarshal failed, degrading to store", "trader_id", id, "error", err)
		return TraderConfig{}, false
	}
	return tc, true
}

// PutTraderConfig caches tc. Failures are logged and swallowed — the
// cache is an optimization, never a source of truth.
func (cc *ConfigCache) PutTraderConfig(ctx context.Context, tc TraderConfig) {
	if !cc.available() {
		return
	}

	raw, err := json.Marshal(tc)
	if err != nil {
		return
	}

	err = cc.client.Set(ctx, traderConfigKey(tc.ID), raw, TraderConfigTTL).Err()
	cc.recordResult(err)
	if err != nil {
		cc.log.Warn("trader config cache write failed", "trader_id", tc.ID, "error", err)
	}
}

// Invalidate drops a cached trader config, used on Reload.
func (cc *ConfigCache) Invalidate(ctx context.Context, id int) {
	if cc.client == nil {
		return
	}
	_ = cc.client.Del(ctx, traderConfigKey(id)).Err()
}

func errIfNotNil(err, sentinel error) error {
	if err == sentinel {
		return nil
	}
	return err
}

