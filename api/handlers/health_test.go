package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/claritycast/api"
)

func getStatus(t *testing.T, h http.HandlerFunc, path string) (int, HealthStatus) {
	t.Helper()
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, path, nil))
	var status HealthStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	return w.Code, status
}

func okCheck(name string) HealthCheck {
	return NewPingCheck(name, func(context.Context) error { return nil })
}

func TestHealthHandler_Liveness(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))
	// 失败的依赖不影响存活探针
	h.RegisterCheck(NewPingCheck("cache_store", func(context.Context) error { return errors.New("down") }))

	for path, fn := range map[string]http.HandlerFunc{api.PathHealth: h.HandleHealth, api.PathHealthz: h.HandleHealthz} {
		code, status := getStatus(t, fn, path)
		assert.Equal(t, http.StatusOK, code, path)
		assert.Equal(t, StatusHealthy, status.Status, path)
		assert.False(t, status.Timestamp.IsZero(), path)
		assert.Empty(t, status.Checks, path)
	}
}

func TestHealthHandler_HandleReady(t *testing.T) {
	tests := []struct {
		name   string
		checks []HealthCheck
		code   int
		status string
	}{
		{"no checks", nil, http.StatusOK, StatusHealthy},
		{"all pass", []HealthCheck{okCheck("cache_store"), okCheck("database")}, http.StatusOK, StatusHealthy},
		{
			"one fails",
			[]HealthCheck{
				okCheck("database"),
				NewPingCheck("cache_store", func(context.Context) error { return errors.New("connection refused") }),
			},
			http.StatusServiceUnavailable,
			StatusUnhealthy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(zaptest.NewLogger(t))
			for _, c := range tt.checks {
				h.RegisterCheck(c)
			}

			code, status := getStatus(t, h.HandleReady, api.PathReady)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, status.Status)
			assert.Len(t, status.Checks, len(tt.checks))
			for name, res := range status.Checks {
				if name == "cache_store" && tt.status == StatusUnhealthy {
					assert.Equal(t, CheckFail, res.Status)
					assert.Equal(t, "connection refused", res.Message)
					continue
				}
				assert.Equal(t, CheckPass, res.Status, name)
				assert.NotEmpty(t, res.Latency, name)
			}
		})
	}
}

func TestHealthHandler_ChecksRunConcurrently(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))

	// 两个检查互相等待，串行执行会卡住直到超时
	var started sync.WaitGroup
	started.Add(2)
	barrier := func(ctx context.Context) error {
		started.Done()
		done := make(chan struct{})
		go func() { started.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("checks ran sequentially")
		}
	}
	h.RegisterCheck(NewPingCheck("a", barrier))
	h.RegisterCheck(NewPingCheck("b", barrier))

	code, status := getStatus(t, h.HandleReady, api.PathReady)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, status.Status)
}

func TestHealthHandler_ReadyHonoursRequestContext(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))
	h.RegisterCheck(NewPingCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	h.HandleReady(w, httptest.NewRequest(http.MethodGet, api.PathReady, nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthHandler_HandleVersion(t *testing.T) {
	h := NewHealthHandler(nil)
	w := httptest.NewRecorder()
	h.HandleVersion(api.VersionInfo{Version: "1.2.0", BuildTime: "2026-01-01T00:00:00Z", GitCommit: "abc123"})(
		w, httptest.NewRequest(http.MethodGet, api.PathVersion, nil))

	require.Equal(t, http.StatusOK, w.Code)
	var info api.VersionInfo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&info))
	assert.Equal(t, api.VersionInfo{Version: "1.2.0", BuildTime: "2026-01-01T00:00:00Z", GitCommit: "abc123"}, info)
}

func TestHealthHandler_ConcurrentReadyAndRegister(t *testing.T) {
	h := NewHealthHandler(zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.RegisterCheck(okCheck("c"))
		}()
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			h.HandleReady(w, httptest.NewRequest(http.MethodGet, api.PathReady, nil))
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()
}
