package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/api/handlers"
	"github.com/BaSui01/claritycast/config"
	"github.com/BaSui01/claritycast/internal/metrics"
	"github.com/BaSui01/claritycast/types"
)

// routerDeps 构造 API 路由所需的依赖
type routerDeps struct {
	cfg       *config.Config
	service   handlers.ClarityService
	health    *handlers.HealthHandler
	collector *metrics.Collector
	logger    *zap.Logger
}

// newRouter 装配中间件与路由。ctx 结束时限流器的清理协程退出。
func newRouter(ctx context.Context, d routerDeps) (http.Handler, error) {
	r := chi.NewRouter()

	r.Use(
		Recovery(d.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(d.logger),
		OTelTracing(),
	)
	if d.collector != nil {
		r.Use(MetricsMiddleware(d.collector))
	}
	r.Use(
		CORS(d.cfg.Server.CORSAllowedOrigins),
		DebugMode(d.cfg.Debug),
	)
	if d.cfg.Server.EnableCompression {
		gz, err := Compression()
		if err != nil {
			return nil, err
		}
		r.Use(gz)
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteError(w, req, types.NewServerError(http.StatusNotFound, "route not found"), nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteError(w, req, types.NewServerError(http.StatusMethodNotAllowed, "method not allowed"), nil)
	})

	// 健康检查不限流
	r.Get(api.PathHealth, d.health.HandleHealth)
	r.Get(api.PathHealthz, d.health.HandleHealthz)
	r.Get(api.PathReady, d.health.HandleReady)
	r.Get(api.PathVersion, d.health.HandleVersion(versionInfo()))

	clarityHandler := handlers.NewClarityHandler(d.service, d.cfg.Server.MaxBodyBytes, d.logger)
	r.Group(func(r chi.Router) {
		if d.cfg.Server.RateLimitRPS > 0 {
			r.Use(RateLimiter(ctx, d.cfg.Server.RateLimitRPS, d.cfg.Server.RateLimitBurst, d.collector, d.logger))
		}
		r.Post(api.PathClarify, clarityHandler.HandleClarify)
		r.Post(api.PathCommunicate, clarityHandler.HandleCommunicate)
	})

	return r, nil
}

// newMetricsRouter 指标端口只暴露 /metrics
func newMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	return r
}
