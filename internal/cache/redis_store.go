// Package cache provides the Redis-backed fingerprint cache store.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/internal/tlsutil"
	llmcache "github.com/BaSui01/claritycast/llm/cache"
)

// =============================================================================
// 💾 Redis 存储
// =============================================================================

// ErrClosed is returned after Close.
var ErrClosed = errors.New("redis store is closed")

// RedisStore implements llm/cache.Store on Redis.
type RedisStore struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
	stop   chan struct{}
}

// Config Redis 存储配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr" env:"ADDR"`

	// 密码
	Password string `yaml:"password" json:"password" env:"PASSWORD"`

	// 数据库编号
	DB int `yaml:"db" json:"db" env:"DB"`

	// 启用 TLS（托管 Redis）
	TLS bool `yaml:"tls" json:"tls" env:"TLS"`

	// 键的过期时间，作为 FingerprintCache TTL 之外的兜底；0 表示不过期
	KeyTTL time.Duration `yaml:"key_ttl" json:"key_ttl" env:"KEY_TTL"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size" env:"POOL_SIZE"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns" env:"MIN_IDLE_CONNS"`

	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval" env:"HEALTH_CHECK_INTERVAL"`

	// SCAN 每批数量
	ScanCount int64 `yaml:"scan_count" json:"scan_count" env:"SCAN_COUNT"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		DB:                  0,
		KeyTTL:              24 * time.Hour,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
		ScanCount:           100,
	}
}

// Options 转换为 go-redis 连接参数
func (c Config) Options() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		MaxRetries:   c.MaxRetries,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
	if c.TLS {
		opts.TLSConfig = tlsutil.Hardened()
	}
	return opts
}

// NewRedisStore 连接 Redis 并创建存储
func NewRedisStore(config Config, logger *zap.Logger) (*RedisStore, error) {
	client := redis.NewClient(config.Options())

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	s := NewRedisStoreFromClient(client, config, logger)

	s.logger.Info("redis store initialized",
		zap.String("addr", config.Addr),
		zap.Int("pool_size", config.PoolSize),
	)
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The store owns it and
// closes it on Close.
func NewRedisStoreFromClient(client *redis.Client, config Config, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ScanCount <= 0 {
		config.ScanCount = 100
	}
	s := &RedisStore{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "redis_store")),
		stop:   make(chan struct{}),
	}

	// 启动健康检查
	if config.HealthCheckInterval > 0 {
		go s.healthCheckLoop()
	}
	return s
}

// =============================================================================
// 🎯 Store 实现
// =============================================================================

// Get 获取值，不存在时返回 llmcache.ErrNotFound
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	val, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, llmcache.ErrNotFound
	}
	if err != nil {
		s.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return val, nil
}

// Set 写入值
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.redis.Set(ctx, key, value, s.config.KeyTTL).Err(); err != nil {
		s.logger.Error("redis set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete 删除键
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		s.logger.Error("redis delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// Keys 使用 SCAN 列出前缀下的键，避免 KEYS 阻塞
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var keys []string
	iter := s.redis.Scan(ctx, 0, escapeGlob(prefix)+"*", s.config.ScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan failed: %w", err)
	}
	return keys, nil
}

// Ping 检查 Redis 连接
func (s *RedisStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	return s.redis.Ping(ctx).Err()
}

// Close 关闭存储
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	close(s.stop)
	s.logger.Info("closing redis store")

	return s.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

func (s *RedisStore) healthCheckLoop() {
	ticker := time.NewTicker(s.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Ping(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				cancel()
				return
			}
			s.logger.Error("redis health check failed", zap.Error(err))
		} else {
			s.logger.Debug("redis health check passed")
		}
		cancel()
	}
}

// escapeGlob 转义 SCAN MATCH 中的通配符
func escapeGlob(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

var (
	_ llmcache.Store  = (*RedisStore)(nil)
	_ llmcache.Pinger = (*RedisStore)(nil)
)
