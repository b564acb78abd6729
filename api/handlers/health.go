package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/claritycast/api"
)

// =============================================================================
// 🏥 健康检查 Handler
// =============================================================================

// 整体状态与单项检查结果
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	CheckPass       = "pass"
	CheckFail       = "fail"
)

// readyTimeout 就绪检查整体超时
const readyTimeout = 5 * time.Second

// HealthCheck is one dependency probed by /ready.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus 健康状态响应
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult 单个检查结果
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthHandler serves liveness, readiness and version. Liveness never
// touches dependencies; readiness runs every registered check concurrently.
type HealthHandler struct {
	logger *zap.Logger

	mu     sync.RWMutex
	checks []HealthCheck
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{logger: logger.With(zap.String("component", "health"))}
}

// RegisterCheck 注册就绪检查（缓存存储等）
func (h *HealthHandler) RegisterCheck(check HealthCheck) {
	h.mu.Lock()
	h.checks = append(h.checks, check)
	h.mu.Unlock()
}

// HandleHealth 处理 /health 请求
// @Summary 存活检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务正常"
// @Router /health [get]
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthStatus{Status: StatusHealthy, Timestamp: time.Now()})
}

// HandleHealthz 与 /health 相同，供 Kubernetes 探针使用
// @Summary Kubernetes 存活探针
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务处于活动状态"
// @Router /healthz [get]
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	h.HandleHealth(w, r)
}

// HandleReady 处理 /ready 请求，任一检查失败返回 503
// @Summary 就绪检查
// @Tags 健康
// @Produce json
// @Success 200 {object} HealthStatus "服务已准备就绪"
// @Failure 503 {object} HealthStatus "依赖不可用"
// @Router /ready [get]
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := h.probe(ctx)
	code := http.StatusOK
	if status.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, status)
}

// HandleVersion 处理 /version 请求
// @Summary 版本信息
// @Tags 健康
// @Produce json
// @Success 200 {object} api.VersionInfo "版本信息"
// @Router /version [get]
func (h *HealthHandler) HandleVersion(info api.VersionInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, info)
	}
}

// probe 并发执行所有检查，单项失败不影响其他检查
func (h *HealthHandler) probe(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var g errgroup.Group
	for i, check := range checks {
		g.Go(func() error {
			start := time.Now()
			err := check.Check(ctx)
			latency := time.Since(start)

			results[i] = CheckResult{Status: CheckPass, Latency: latency.String()}
			if err != nil {
				results[i].Status = CheckFail
				results[i].Message = err.Error()
				h.logger.Warn("readiness check failed",
					zap.String("check", check.Name()),
					zap.Duration("latency", latency),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]CheckResult, len(checks)),
	}
	for i, check := range checks {
		status.Checks[check.Name()] = results[i]
		if results[i].Status == CheckFail {
			status.Status = StatusUnhealthy
		}
	}
	return status
}

// =============================================================================
// 🔧 内置检查
// =============================================================================

// PingCheck adapts a ping function (cache store, database) to HealthCheck.
type PingCheck struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingCheck 创建基于 ping 的检查
func NewPingCheck(name string, ping func(ctx context.Context) error) *PingCheck {
	return &PingCheck{name: name, ping: ping}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) error { return c.ping(ctx) }
