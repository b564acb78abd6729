// =============================================================================
// ClarityCast 主入口
// =============================================================================
// 服务端与命令行客户端共用一个二进制
//
// 使用方法:
//
//	claritycast serve                          # 启动 API 服务
//	claritycast serve --config config.yaml     # 指定配置文件
//	claritycast clarify --mode decision "..."  # 通过 API 澄清问题
//	claritycast communicate --context technical --intent inform "..."
//	claritycast cache clear-expired            # 清理过期缓存
//	claritycast migrate up                     # 运行 SQL 缓存表迁移
//	claritycast health                         # 健康检查
//	claritycast version                        # 显示版本信息
// =============================================================================

// @title ClarityCast API
// @version 1.0.0
// @description Structured clarity and communication drafts generated by Gemini.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func versionInfo() api.VersionInfo {
	return api.VersionInfo{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
}

// rootOptions 所有子命令共享的全局参数
type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "claritycast",
		Short:         "ClarityCast - structured clarity and message drafts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "include debug details in errors")

	root.AddCommand(
		newServeCmd(opts),
		newClarifyCmd(opts),
		newCommunicateCmd(opts),
		newCacheCmd(opts),
		newMigrateCmd(opts),
		newHealthCmd(opts),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig 加载并校验配置，--debug 覆盖配置文件
func (o *rootOptions) loadConfig() (*config.Config, error) {
	loader := config.NewLoader().WithDotEnv(".env.local", ".env")
	if o.configPath != "" {
		loader = loader.WithConfigPath(o.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if o.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
