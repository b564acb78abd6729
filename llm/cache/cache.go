package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultPrefix namespaces every key this package writes.
const DefaultPrefix = "claritycast_cache_v1:"

const (
	devTTL  = 24 * time.Hour
	prodTTL = time.Hour
)

// DefaultTTL returns the entry lifetime for an environment: 24h for
// development, 1h otherwise.
func DefaultTTL(env string) time.Duration {
	if env == "development" {
		return devTTL
	}
	return prodTTL
}

// Config 缓存配置
type Config struct {
	TTL    time.Duration `yaml:"ttl" json:"ttl"`
	Prefix string        `yaml:"prefix" json:"prefix"`
}

// DefaultConfig returns the config for env.
func DefaultConfig(env string) Config {
	return Config{TTL: DefaultTTL(env), Prefix: DefaultPrefix}
}

// Entry is the stored payload.
type Entry struct {
	Timestamp int64           `json:"ts"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals Data into v.
func (e *Entry) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// StatsRecorder 命中率统计
type StatsRecorder interface {
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

// FingerprintCache stores successful responses under the fingerprint of the
// request that produced them.
type FingerprintCache struct {
	store  Store
	config Config
	now    func() time.Time
	logger *zap.Logger
	stats  StatsRecorder
}

// Option configures a FingerprintCache.
type Option func(*FingerprintCache)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *FingerprintCache) { c.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *FingerprintCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithStats(s StatsRecorder) Option {
	return func(c *FingerprintCache) { c.stats = s }
}

// New creates a FingerprintCache. A zero TTL or empty prefix falls back to
// the production TTL and DefaultPrefix.
func New(store Store, cfg Config, opts ...Option) *FingerprintCache {
	if cfg.TTL <= 0 {
		cfg.TTL = prodTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	c := &FingerprintCache{
		store:  store,
		config: cfg,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "fingerprint_cache"))
	return c
}

// TTL returns the configured entry lifetime.
func (c *FingerprintCache) TTL() time.Duration { return c.config.TTL }

// Store returns the backing store.
func (c *FingerprintCache) Store() Store { return c.store }

// Key returns the fingerprint of req, used as the cache key.
func (c *FingerprintCache) Key(req any) (string, error) {
	return Fingerprint(req)
}

func (c *FingerprintCache) storeKey(key string) string {
	return c.config.Prefix + key
}

// Get returns the entry for key. Missing, unparseable and expired entries
// are reported absent; the latter two are removed.
func (c *FingerprintCache) Get(ctx context.Context, key string) (*Entry, bool) {
	sk := c.storeKey(key)
	raw, err := c.store.Get(ctx, sk)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.miss()
		return nil, false
	}

	entry, ok := c.parse(raw)
	if !ok || c.expired(entry) {
		if derr := c.store.Delete(ctx, sk); derr != nil {
			c.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(derr))
		}
		c.miss()
		return nil, false
	}

	if c.stats != nil {
		c.stats.RecordCacheHit("fingerprint")
	}
	return entry, true
}

// Set stores data under key with the current timestamp.
func (c *FingerprintCache) Set(ctx context.Context, key string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("cache: marshal data: %w", err)
	}
	raw, err := json.Marshal(Entry{Timestamp: c.now().UnixMilli(), Data: payload})
	if err != nil {
		return fmt.Errorf("cache: marshal entry: %w", err)
	}
	if err := c.store.Set(ctx, c.storeKey(key), raw); err != nil {
		return fmt.Errorf("cache: set: %w", err)
	}
	return nil
}

// ClearExpired removes every expired or unparseable entry under the prefix.
func (c *FingerprintCache) ClearExpired(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.config.Prefix)
	if err != nil {
		return 0, fmt.Errorf("cache: list keys: %w", err)
	}

	removed := 0
	for _, k := range keys {
		raw, err := c.store.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("cache: get %s: %w", k, err)
		}
		if entry, ok := c.parse(raw); ok && !c.expired(entry) {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return removed, fmt.Errorf("cache: delete %s: %w", k, err)
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info("expired cache entries removed", zap.Int("removed", removed))
	}
	return removed, nil
}

// ClearAll removes every entry under the prefix.
func (c *FingerprintCache) ClearAll(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, c.config.Prefix)
	if err != nil {
		return 0, fmt.Errorf("cache: list keys: %w", err)
	}
	for i, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return i, fmt.Errorf("cache: delete %s: %w", k, err)
		}
	}
	return len(keys), nil
}

func (c *FingerprintCache) parse(raw []byte) (*Entry, bool) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Timestamp <= 0 || len(e.Data) == 0 {
		return nil, false
	}
	return &e, true
}

func (c *FingerprintCache) expired(e *Entry) bool {
	age := c.now().UnixMilli() - e.Timestamp
	return age > c.config.TTL.Milliseconds()
}

func (c *FingerprintCache) miss() {
	if c.stats != nil {
		c.stats.RecordCacheMiss("fingerprint")
	}
}
