// =============================================================================
// 📦 ClarityCast 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + .env 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("CLARITYCAST").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → .env.local/.env → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cachestore "github.com/BaSui01/claritycast/internal/cache"
	"github.com/BaSui01/claritycast/internal/database"
	"github.com/BaSui01/claritycast/llm/providers"
)

// 运行环境
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// 缓存后端
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQL    = "sql"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ClarityCast 的完整配置结构
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Gemini LLM 配置
	Gemini GeminiConfig `yaml:"gemini" env:"GEMINI"`

	// Generation 结构化生成配置
	Generation GenerationConfig `yaml:"generation" env:"GENERATION"`

	// Client API 客户端配置（CLI 使用）
	Client ClientConfig `yaml:"client" env:"CLIENT"`

	// Cache 指纹缓存配置
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Redis 缓存存储配置
	Redis cachestore.Config `yaml:"redis" env:"REDIS"`

	// Database SQL 缓存存储配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`

	// Env 运行环境: development, production
	Env string `yaml:"env" env:"ENV"`

	// Debug 在错误响应中附带诊断信息
	Debug bool `yaml:"debug" env:"DEBUG"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口，0 表示不单独启动
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时，需覆盖一次生成加一次修复
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 请求体上限（字节）
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
	// 每个 IP 的限流速率，0 表示不限流
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 限流突发
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// CORS 允许的来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 是否启用 gzip 压缩
	EnableCompression bool `yaml:"enable_compression" env:"ENABLE_COMPRESSION"`
	// TLS 证书与私钥，均为空时使用明文 HTTP
	TLSCertFile string `yaml:"tls_cert_file" env:"TLS_CERT_FILE"`
	TLSKeyFile  string `yaml:"tls_key_file" env:"TLS_KEY_FILE"`
}

// Addr 返回 HTTP 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.HTTPPort)
}

// GeminiConfig Gemini 配置
type GeminiConfig struct {
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 模型名称
	Model string `yaml:"model" env:"MODEL"`
	// 模型不存在时的回退模型
	FallbackModel string `yaml:"fallback_model" env:"FALLBACK_MODEL"`
	// HTTP 超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 请求 JSON 输出
	JSONMode bool `yaml:"json_mode" env:"JSON_MODE"`
}

// ProviderConfig 转换为 Provider 配置
func (g GeminiConfig) ProviderConfig() providers.GeminiConfig {
	return providers.GeminiConfig{
		BaseProviderConfig: providers.BaseProviderConfig{
			APIKey:  g.APIKey,
			BaseURL: g.BaseURL,
			Model:   providers.NormalizeModelName(g.Model),
			Timeout: g.Timeout,
		},
		FallbackModel: providers.NormalizeModelName(g.FallbackModel),
		JSONMode:      g.JSONMode,
	}
}

// GenerationConfig 结构化生成配置
type GenerationConfig struct {
	// 单次 LLM 调用超时
	CallTimeout time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT"`
	// 修复重试次数
	MaxRepairAttempts int `yaml:"max_repair_attempts" env:"MAX_REPAIR_ATTEMPTS"`
	// 温度，0 表示使用模型默认值
	Temperature float32 `yaml:"temperature" env:"TEMPERATURE"`
	// 最大输出 Token 数，0 表示使用模型默认值
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
}

// ClientConfig API 客户端配置
type ClientConfig struct {
	// 服务端地址
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 单次尝试超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 退避基准延迟
	BaseDelay time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	// 退避最大延迟
	MaxDelay time.Duration `yaml:"max_delay" env:"MAX_DELAY"`
}

// CacheConfig 指纹缓存配置
type CacheConfig struct {
	// 后端: memory, redis, sql
	Backend string `yaml:"backend" env:"BACKEND"`
	// TTL，0 表示按运行环境取默认值
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// 键前缀
	Prefix string `yaml:"prefix" env:"PREFIX"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite
	Driver string `yaml:"driver" env:"DRIVER"`
	// 完整连接串，非空时优先于下面的字段
	DSN string `yaml:"dsn" env:"DSN"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名，sqlite 时为文件路径
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 启动时用 GORM AutoMigrate 建表
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`
	// 连接池
	Pool database.PoolConfig `yaml:"pool" env:"POOL"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	dotEnv     []string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "CLARITYCAST",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithDotEnv 设置要加载的 .env 文件，靠前的文件优先；
// 不覆盖已存在的环境变量，缺失的文件被忽略
func (l *Loader) WithDotEnv(files ...string) *Loader {
	l.dotEnv = files
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. .env 文件写入进程环境
	if err := l.loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load dotenv: %w", err)
	}

	// 4. 通用别名，再由带前缀的变量覆盖
	if err := applyAliases(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 5. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadDotEnv() error {
	for _, file := range l.dotEnv {
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil
}

// applyAliases 读取不带前缀的常用变量
func applyAliases(cfg *Config) error {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Gemini.Model = providers.NormalizeModelName(v)
	}
	if v := os.Getenv("DEBUG_GEMINI"); v != "" {
		cfg.Debug = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = strings.ToLower(strings.TrimSpace(v))
	}
	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// IsDevelopment 是否开发环境
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []error

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP port %d", c.Server.HTTPPort))
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid metrics port %d", c.Server.MetricsPort))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	if c.Server.RateLimitRPS < 0 {
		errs = append(errs, errors.New("server.rate_limit_rps must not be negative"))
	}
	if (c.Server.TLSCertFile == "") != (c.Server.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.tls_cert_file and server.tls_key_file must be set together"))
	}

	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("gemini.model is required"))
	}
	if _, err := url.ParseRequestURI(c.Gemini.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("gemini.base_url: %w", err))
	}

	if c.Generation.CallTimeout <= 0 {
		errs = append(errs, errors.New("generation.call_timeout must be positive"))
	}
	if c.Generation.MaxRepairAttempts < 0 {
		errs = append(errs, errors.New("generation.max_repair_attempts must not be negative"))
	}

	if c.Client.MaxRetries < 0 {
		errs = append(errs, errors.New("client.max_retries must not be negative"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client.timeout must be positive"))
	}
	if c.Client.BaseDelay <= 0 || c.Client.MaxDelay < c.Client.BaseDelay {
		errs = append(errs, errors.New("client delays must satisfy 0 < base_delay <= max_delay"))
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	case CacheBackendSQL:
		if c.Database.DSNString() == "" {
			errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
		}
		if err := c.Database.Pool.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("database.pool: %w", err))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("unknown env %q", c.Env))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, errors.New("telemetry.sample_rate must be between 0 and 1"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation errors: %w", err)
	}
	return nil
}

// RequireGeminiKey 服务端启动前检查 API Key
func (c *Config) RequireGeminiKey() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return errors.New("GEMINI_API_KEY is not set")
	}
	return nil
}

// DSNString 返回 gorm 使用的连接字符串，显式 DSN 优先
func (d *DatabaseConfig) DSNString() string {
	if d.DSN != "" {
		return d.DSN
	}
	switch strings.ToLower(d.Driver) {
	case "postgres", "postgresql":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite", "sqlite3":
		return d.Name
	default:
		return ""
	}
}
