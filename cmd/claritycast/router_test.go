package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/claritycast/agent/structured"
	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/api/handlers"
	"github.com/BaSui01/claritycast/clarity"
	"github.com/BaSui01/claritycast/config"
	"github.com/BaSui01/claritycast/internal/metrics"
	"github.com/BaSui01/claritycast/testutil/fixtures"
	"github.com/BaSui01/claritycast/testutil/mocks"
	"github.com/BaSui01/claritycast/types"
)

type testRouter struct {
	handler  http.Handler
	provider *mocks.MockProvider
	health   *handlers.HealthHandler
}

func newTestRouter(t *testing.T, provider *mocks.MockProvider, mutate func(*config.Config), collector *metrics.Collector) *testRouter {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.RateLimitRPS = 0
	if mutate != nil {
		mutate(cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zaptest.NewLogger(t)
	health := handlers.NewHealthHandler(logger)
	service := clarity.NewService(structured.NewPipeline(provider, structured.WithLogger(logger)), logger)
	h, err := newRouter(ctx, routerDeps{
		cfg:       cfg,
		service:   service,
		health:    health,
		collector: collector,
		logger:    logger,
	})
	require.NoError(t, err)
	return &testRouter{handler: h, provider: provider, health: health}
}

func (tr *testRouter) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	r.RemoteAddr = "192.0.2.1:5000"
	w := httptest.NewRecorder()
	tr.handler.ServeHTTP(w, r)
	return w
}

func TestRouter_Clarify(t *testing.T) {
	tr := newTestRouter(t, mocks.NewMockProvider().WithResponses(fixtures.Fenced(fixtures.DecisionJSON)), nil, nil)

	w := tr.do(http.MethodPost, api.PathClarify, `{"mode":"decision","text":"Take the new job or stay?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(api.HeaderRequestID))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "decision", body["problem_type"])
	assert.Equal(t, 1, tr.provider.CallCount())
}

func TestRouter_InvalidInput(t *testing.T) {
	tr := newTestRouter(t, mocks.NewMockProvider(), nil, nil)

	w := tr.do(http.MethodPost, api.PathClarify, `{"mode":"nonsense","text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeEnvelope(t, w)
	assert.Equal(t, types.ErrInvalidInput, resp.ErrorType)
	assert.NotEmpty(t, resp.Details)
	assert.Zero(t, tr.provider.CallCount())
}

func TestRouter_NotFoundAndMethod(t *testing.T) {
	tr := newTestRouter(t, mocks.NewMockProvider(), nil, nil)

	w := tr.do(http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, types.ErrServer, decodeEnvelope(t, w).ErrorType)

	w = tr.do(http.MethodGet, api.PathClarify, "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, types.ErrServer, decodeEnvelope(t, w).ErrorType)
}

func TestRouter_RateLimitedEndpointsOnly(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse(fixtures.DecisionJSON)
	tr := newTestRouter(t, provider, func(c *config.Config) {
		c.Server.RateLimitRPS = 0.01
		c.Server.RateLimitBurst = 1
	}, nil)

	body := `{"mode":"decision","text":"x"}`
	assert.Equal(t, http.StatusOK, tr.do(http.MethodPost, api.PathClarify, body).Code)

	w := tr.do(http.MethodPost, api.PathClarify, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, types.ErrRateLimit, decodeEnvelope(t, w).ErrorType)
	assert.Equal(t, 1, provider.CallCount())

	// 健康检查不受限
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, api.PathHealth, "").Code)
	}
}

func TestRouter_Readiness(t *testing.T) {
	tr := newTestRouter(t, mocks.NewMockProvider(), nil, nil)

	assert.Equal(t, http.StatusOK, tr.do(http.MethodGet, api.PathReady, "").Code)

	tr.health.RegisterCheck(handlers.NewPingCheck("cache_store", func(context.Context) error {
		return errors.New("connection refused")
	}))
	w := tr.do(http.MethodGet, api.PathReady, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var status handlers.HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "fail", status.Checks["cache_store"].Status)
}

func TestRouter_Version(t *testing.T) {
	tr := newTestRouter(t, mocks.NewMockProvider(), nil, nil)

	w := tr.do(http.MethodGet, api.PathVersion, "")
	require.Equal(t, http.StatusOK, w.Code)
	var info api.VersionInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, Version, info.Version)
}

func TestRouter_WithMetrics(t *testing.T) {
	collector := metrics.NewCollector("claritycast_router_test", nil)
	tr := newTestRouter(t, mocks.NewMockProvider().WithResponse(fixtures.DecisionJSON), nil, collector)

	w := tr.do(http.MethodPost, api.PathClarify, `{"mode":"decision","text":"x"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	newMetricsRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `claritycast_router_test_http_requests_total{method="POST",path="/api/clarify",status="2xx"}`)
}
