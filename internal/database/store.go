package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	llmcache "github.com/BaSui01/claritycast/llm/cache"
)

// =============================================================================
// 💾 SQL 缓存存储
// =============================================================================

// CacheEntry 缓存表行，value 保存 {"ts","data"} 信封
type CacheEntry struct {
	Key       string    `gorm:"column:cache_key;primaryKey;size:191"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;index:idx_claritycast_cache_entries_updated_at"`
}

// TableName 表名
func (CacheEntry) TableName() string { return "claritycast_cache_entries" }

// SQLStoreConfig SQL 存储配置
type SQLStoreConfig struct {
	// 启动时用 GORM AutoMigrate 建表（SQLite 必须开启）
	AutoMigrate bool

	// 写入事务的重试次数
	MaxRetries int
}

// SQLStore implements llm/cache.Store on any GORM dialect.
type SQLStore struct {
	pool   *PoolManager
	config SQLStoreConfig
	logger *zap.Logger
}

// NewSQLStore 创建 SQL 存储
func NewSQLStore(ctx context.Context, pool *PoolManager, config SQLStoreConfig, logger *zap.Logger) (*SQLStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	s := &SQLStore{
		pool:   pool,
		config: config,
		logger: logger.With(zap.String("component", "sql_store")),
	}

	if config.AutoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// EnsureSchema 创建缓存表
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if err := s.pool.DB().WithContext(ctx).AutoMigrate(&CacheEntry{}); err != nil {
		return fmt.Errorf("auto migrate cache table: %w", err)
	}
	return nil
}

// Get 读取值，不存在时返回 llmcache.ErrNotFound
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var entry CacheEntry
	err := s.pool.DB().WithContext(ctx).Where("cache_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, llmcache.ErrNotFound
	}
	if err != nil {
		s.logger.Error("sql get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("sql get failed: %w", err)
	}
	return []byte(entry.Value), nil
}

// Set 插入或覆盖
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	entry := CacheEntry{Key: key, Value: string(value), UpdatedAt: time.Now().UTC()}

	err := s.pool.WithTransactionRetry(ctx, s.config.MaxRetries, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&entry).Error
	})
	if err != nil {
		s.logger.Error("sql set failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("sql set failed: %w", err)
	}
	return nil
}

// Delete 删除键，不存在不是错误
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	err := s.pool.DB().WithContext(ctx).Where("cache_key = ?", key).Delete(&CacheEntry{}).Error
	if err != nil {
		return fmt.Errorf("sql delete failed: %w", err)
	}
	return nil
}

// Keys 列出前缀下的键
func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	q := s.pool.DB().WithContext(ctx).Model(&CacheEntry{})
	// LIKE 只做粗筛，'_' '%' 会多匹配，最终以 HasPrefix 为准；
	// 反斜杠在部分方言里是转义符，含有时直接全表扫描
	if prefix != "" && !strings.ContainsRune(prefix, '\\') {
		q = q.Where("cache_key LIKE ?", prefix+"%")
	}

	var candidates []string
	if err := q.Order("cache_key").Pluck("cache_key", &candidates).Error; err != nil {
		return nil, fmt.Errorf("sql keys failed: %w", err)
	}

	keys := make([]string, 0, len(candidates))
	for _, k := range candidates {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ping 检查数据库连接
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close 关闭底层连接池
func (s *SQLStore) Close() error {
	return s.pool.Close()
}

var (
	_ llmcache.Store  = (*SQLStore)(nil)
	_ llmcache.Pinger = (*SQLStore)(nil)
)
