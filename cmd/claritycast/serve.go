package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/claritycast/agent/structured"
	"github.com/BaSui01/claritycast/api/handlers"
	"github.com/BaSui01/claritycast/clarity"
	"github.com/BaSui01/claritycast/config"
	"github.com/BaSui01/claritycast/internal/metrics"
	"github.com/BaSui01/claritycast/internal/server"
	"github.com/BaSui01/claritycast/internal/telemetry"
	llmcache "github.com/BaSui01/claritycast/llm/cache"
	"github.com/BaSui01/claritycast/llm/providers/gemini"
)

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the ClarityCast API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.RequireGeminiKey(); err != nil {
				return err
			}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger)
		},
	}
}

// runServe 启动 API 与 metrics 两个服务，直到 ctx 结束
func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting ClarityCast",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("env", cfg.Env),
		zap.Bool("debug", cfg.Debug),
	)

	otelProviders, err := telemetry.Init(ctx, cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := otelProviders.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector("claritycast", logger)
	health := handlers.NewHealthHandler(logger)

	// 共享缓存存储由服务端做启动清理与就绪探测
	if cfg.Cache.Backend != config.CacheBackendMemory {
		store, closeStore, err := openStore(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("open cache store: %w", err)
		}
		defer func() { _ = closeStore() }()

		if p, ok := store.(llmcache.Pinger); ok {
			health.RegisterCheck(handlers.NewPingCheck("cache_store", p.Ping))
		}
		if removed, err := newFingerprintCache(store, cfg, collector, logger).ClearExpired(ctx); err != nil {
			logger.Warn("cache prune failed", zap.Error(err))
		} else {
			collector.RecordCachePruned(removed)
			logger.Info("cache pruned", zap.Int("removed", removed))
		}
	}

	provider := gemini.NewGeminiProvider(cfg.Gemini.ProviderConfig(), logger)
	if cfg.Debug {
		provider.LogModels(ctx)
	}

	pipeline := structured.NewPipeline(provider,
		structured.WithLogger(logger),
		structured.WithMetrics(collector),
		structured.WithMaxRepairAttempts(cfg.Generation.MaxRepairAttempts),
		structured.WithCallTimeout(cfg.Generation.CallTimeout),
		structured.WithTemperature(cfg.Generation.Temperature),
		structured.WithMaxTokens(cfg.Generation.MaxTokens),
	)
	service := clarity.NewService(pipeline, logger)

	handler, err := newRouter(ctx, routerDeps{
		cfg:       cfg,
		service:   service,
		health:    health,
		collector: collector,
		logger:    logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.NewManager(handler, apiServerConfig(cfg.Server), logger).Run(gctx)
	})
	if cfg.Server.MetricsPort > 0 {
		g.Go(func() error {
			return server.NewManager(newMetricsRouter(), metricsServerConfig(cfg.Server), logger).Run(gctx)
		})
	}

	err = g.Wait()
	logger.Info("ClarityCast stopped")
	return err
}

func apiServerConfig(s config.ServerConfig) server.Config {
	c := server.DefaultConfig()
	c.Name = "api"
	c.Addr = s.Addr()
	c.ReadTimeout = s.ReadTimeout
	c.WriteTimeout = s.WriteTimeout
	c.ShutdownTimeout = s.ShutdownTimeout
	c.TLSCertFile = s.TLSCertFile
	c.TLSKeyFile = s.TLSKeyFile
	return c
}

func metricsServerConfig(s config.ServerConfig) server.Config {
	c := server.DefaultConfig()
	c.Name = "metrics"
	c.Addr = fmt.Sprintf(":%d", s.MetricsPort)
	c.ShutdownTimeout = s.ShutdownTimeout
	return c
}
