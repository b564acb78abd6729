package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/config"
	cachestore "github.com/BaSui01/claritycast/internal/cache"
	"github.com/BaSui01/claritycast/internal/database"
	"github.com/BaSui01/claritycast/internal/metrics"
	llmcache "github.com/BaSui01/claritycast/llm/cache"
)

// =============================================================================
// 💾 缓存存储装配
// =============================================================================

// openStore 按 cache.backend 打开存储；返回的 close 总是非 nil
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llmcache.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cache.Backend {
	case config.CacheBackendMemory, "":
		return llmcache.NewMemoryStore(), noop, nil

	case config.CacheBackendRedis:
		store, err := cachestore.NewRedisStore(cfg.Redis, logger)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case config.CacheBackendSQL:
		pool, err := database.Open(ctx, cfg.Database.Driver, cfg.Database.DSNString(), cfg.Database.Pool, logger)
		if err != nil {
			return nil, noop, err
		}
		store, err := database.NewSQLStore(ctx, pool, database.SQLStoreConfig{
			AutoMigrate: cfg.Database.AutoMigrate,
		}, logger)
		if err != nil {
			_ = pool.Close()
			return nil, noop, err
		}
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// newFingerprintCache 在存储之上构造指纹缓存
func newFingerprintCache(store llmcache.Store, cfg *config.Config, collector *metrics.Collector, logger *zap.Logger) *llmcache.FingerprintCache {
	opts := []llmcache.Option{llmcache.WithLogger(logger)}
	if collector != nil {
		opts = append(opts, llmcache.WithStats(collector))
	}
	return llmcache.New(store, cfg.CacheOptions(), opts...)
}
