// =============================================================================
// 📦 ClarityCast 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import (
	"time"

	cachestore "github.com/BaSui01/claritycast/internal/cache"
	"github.com/BaSui01/claritycast/internal/database"
	llmcache "github.com/BaSui01/claritycast/llm/cache"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		Gemini:     DefaultGeminiConfig(),
		Generation: DefaultGenerationConfig(),
		Client:     DefaultClientConfig(),
		Cache:      DefaultCacheConfig(),
		Redis:      cachestore.DefaultConfig(),
		Database:   DefaultDatabaseConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
		Env:        EnvProduction,
		Debug:      false,
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:          8080,
		MetricsPort:       9091,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		ShutdownTimeout:   15 * time.Second,
		MaxBodyBytes:      1 << 20,
		RateLimitRPS:      5,
		RateLimitBurst:    10,
		EnableCompression: true,
	}
}

// DefaultGeminiConfig 返回默认 Gemini 配置
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		BaseURL:       "https://generativelanguage.googleapis.com",
		Model:         "gemini-3-flash-preview",
		FallbackModel: "gemini-2.5-flash",
		Timeout:       55 * time.Second,
		JSONMode:      true,
	}
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		CallTimeout:       50 * time.Second,
		MaxRepairAttempts: 1,
	}
}

// DefaultClientConfig 返回默认客户端配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:    "http://localhost:8080",
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// DefaultCacheConfig 返回默认缓存配置
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Backend: CacheBackendMemory,
		Prefix:  llmcache.DefaultPrefix,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:      "sqlite",
		Host:        "localhost",
		Port:        5432,
		User:        "claritycast",
		Name:        "claritycast.db",
		SSLMode:     "disable",
		AutoMigrate: true,
		Pool:        database.DefaultPoolConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "claritycast",
		SampleRate:   0.1,
	}
}

// CacheTTL 返回生效的缓存 TTL：显式配置优先，否则按运行环境
func (c *Config) CacheTTL() time.Duration {
	if c.Cache.TTL > 0 {
		return c.Cache.TTL
	}
	return llmcache.DefaultTTL(c.Env)
}

// CacheOptions 返回指纹缓存配置
func (c *Config) CacheOptions() llmcache.Config {
	return llmcache.Config{TTL: c.CacheTTL(), Prefix: c.Cache.Prefix}
}
