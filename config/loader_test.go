// 配置加载器测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearAliases 清空可能来自外部环境的别名变量
func clearAliases(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GEMINI_MODEL", "DEBUG_GEMINI", "APP_ENV"} {
		t.Setenv(k, "")
	}
}

// unsetForDotEnv 让 godotenv 可以写入这些变量，并在测试结束时清理
func unsetForDotEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
		key := k
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	clearAliases(t)

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "gemini-3-flash-preview", cfg.Gemini.Model)
	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.Debug)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_LoadFromYAML(t *testing.T) {
	clearAliases(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  cors_allowed_origins: ["https://app.example.com"]

gemini:
  model: "gemini-2.5-pro"
  fallback_model: ""

generation:
  call_timeout: 20s
  temperature: 0.3

cache:
  backend: redis
  ttl: 10m

redis:
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

database:
  driver: postgres
  pool:
    max_open_conns: 50

log:
  level: "debug"
  format: "console"

env: development
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORSAllowedOrigins)

	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Empty(t, cfg.Gemini.FallbackModel)
	assert.Equal(t, 20*time.Second, cfg.Generation.CallTimeout)
	assert.InDelta(t, 0.3, cfg.Generation.Temperature, 1e-6)

	assert.Equal(t, CacheBackendRedis, cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL())
	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Redis.DB)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 50, cfg.Database.Pool.MaxOpenConns)
	// 未写出的嵌套字段保留默认值
	assert.Equal(t, 5, cfg.Database.Pool.MaxIdleConns)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoader_LoadFromEnv(t *testing.T) {
	clearAliases(t)
	envVars := map[string]string{
		"CLARITYCAST_SERVER_HTTP_PORT":               "7777",
		"CLARITYCAST_SERVER_RATE_LIMIT_RPS":          "2.5",
		"CLARITYCAST_SERVER_CORS_ALLOWED_ORIGINS":    "https://a.test, https://b.test",
		"CLARITYCAST_CLIENT_MAX_RETRIES":             "5",
		"CLARITYCAST_CLIENT_BASE_DELAY":              "250ms",
		"CLARITYCAST_REDIS_KEY_TTL":                  "2h",
		"CLARITYCAST_DATABASE_POOL_MAX_OPEN_CONNS":   "7",
		"CLARITYCAST_GENERATION_MAX_REPAIR_ATTEMPTS": "2",
		"CLARITYCAST_LOG_LEVEL":                      "warn",
		"CLARITYCAST_DEBUG":                          "true",
	}
	for k, v := range envVars {
		t.Setenv(k, v)
	}

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, 5, cfg.Client.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Client.BaseDelay)
	assert.Equal(t, 2*time.Hour, cfg.Redis.KeyTTL)
	assert.Equal(t, 7, cfg.Database.Pool.MaxOpenConns)
	assert.Equal(t, 2, cfg.Generation.MaxRepairAttempts)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Debug)
}

func TestLoader_Aliases(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key-123")
	t.Setenv("GEMINI_MODEL", "models/gemini-2.5-flash")
	t.Setenv("DEBUG_GEMINI", "true")
	t.Setenv("APP_ENV", "Development")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "key-123", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.True(t, cfg.Debug)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.NoError(t, cfg.RequireGeminiKey())
}

func TestLoader_DebugGeminiOnlyTrueEnables(t *testing.T) {
	clearAliases(t)
	t.Setenv("DEBUG_GEMINI", "1")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.False(t, cfg.Debug)
}

func TestLoader_PrefixedBeatsAlias(t *testing.T) {
	clearAliases(t)
	t.Setenv("GEMINI_MODEL", "alias-model")
	t.Setenv("CLARITYCAST_GEMINI_MODEL", "prefixed-model")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-model", cfg.Gemini.Model)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	clearAliases(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
server:
  http_port: 8888
gemini:
  model: "yaml-model"
  fallback_model: "yaml-fallback"
`), 0644))

	t.Setenv("CLARITYCAST_SERVER_HTTP_PORT", "9999")
	t.Setenv("CLARITYCAST_GEMINI_MODEL", "env-model")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "env-model", cfg.Gemini.Model)
	assert.Equal(t, "yaml-fallback", cfg.Gemini.FallbackModel)
}

func TestLoader_DotEnv(t *testing.T) {
	clearAliases(t)
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	base := filepath.Join(dir, ".env")

	require.NoError(t, os.WriteFile(local, []byte("GEMINI_API_KEY=from-local\n"), 0644))
	require.NoError(t, os.WriteFile(base, []byte(
		"GEMINI_API_KEY=from-base\nCLARITYCAST_SERVER_HTTP_PORT=7070\nCLARITYCAST_LOG_LEVEL=debug\n"), 0644))

	// GEMINI_API_KEY 在 clearAliases 中被设为空串，视为已存在，这里移除
	unsetForDotEnv(t, "GEMINI_API_KEY", "CLARITYCAST_SERVER_HTTP_PORT")
	// 真实环境变量不被 .env 覆盖
	t.Setenv("CLARITYCAST_LOG_LEVEL", "warn")

	cfg, err := NewLoader().
		WithDotEnv(local, base, filepath.Join(dir, "missing.env")).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "from-local", cfg.Gemini.APIKey, ".env.local wins over .env")
	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	clearAliases(t)
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("MYAPP").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_WithValidator(t *testing.T) {
	clearAliases(t)
	t.Setenv("CLARITYCAST_SERVER_HTTP_PORT", "80")

	_, err := NewLoader().
		WithValidator(func(cfg *Config) error {
			if cfg.Server.HTTPPort < 1024 {
				return assert.AnError
			}
			return nil
		}).
		Load()
	assert.Error(t, err)
}

func TestLoader_BadEnvValue(t *testing.T) {
	clearAliases(t)
	t.Setenv("CLARITYCAST_CLIENT_TIMEOUT", "sixty")

	_, err := NewLoader().Load()
	assert.ErrorContains(t, err, "CLARITYCAST_CLIENT_TIMEOUT")
}

func TestLoader_NonExistentFile(t *testing.T) {
	clearAliases(t)
	cfg, err := NewLoader().WithConfigPath("/non/existent/path/config.yaml").Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  http_port: [invalid\n"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: [\n"), 0644))
	assert.Panics(t, func() { MustLoad(configPath) })
}
