package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/testutil"
	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 🧪 测试辅助
// =============================================================================

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func newTestClient(t *testing.T, url string, rec *sleepRecorder, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithLogger(zaptest.NewLogger(t)),
		WithSleep(rec.sleep),
		WithJitter(NoJitter),
	}
	return New(url, append(base, opts...)...)
}

func writeEnvelope(w http.ResponseWriter, status int, env api.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// =============================================================================
// 🧪 重试分类
// =============================================================================

func TestCall_Success(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get(api.HeaderRequestID))
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL+"/", rec)

	var out struct{ OK bool }
	err := c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{"mode": "plan"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, "plan", gotBody["mode"])
	assert.Empty(t, rec.recorded())
}

func TestCall_RetriesServiceUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, rec)

	var retries []int
	err := c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{}, nil,
		WithMaxRetries(3),
		WithBackoff(100*time.Millisecond, 10*time.Second),
		WithOnRetry(func(attempt, max int, delay time.Duration) {
			assert.Equal(t, 3, max)
			retries = append(retries, attempt)
		}))

	te := testutil.AssertErrorType(t, err, types.ErrServer)
	assert.Equal(t, http.StatusServiceUnavailable, te.HTTPStatus)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, []int{1, 2, 3}, retries)

	delays := rec.recorded()
	require.Len(t, delays, 3)
	for i, d := range delays {
		min := 100 * time.Millisecond << i
		assert.GreaterOrEqual(t, d, min, "retry %d", i+1)
	}
}

func TestCall_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeEnvelope(w, http.StatusBadRequest, api.ErrorResponse{
			ErrorType: types.ErrInvalidInput,
			Message:   "invalid request",
			Details:   []types.Issue{{Path: "text", Message: "required field is missing"}},
		})
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, rec)

	err := c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{}, nil)
	te := testutil.AssertErrorType(t, err, types.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, te.HTTPStatus)
	assert.Equal(t, "text", te.Details[0].Path)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, rec.recorded())
}

func TestCall_RetryAfterFloor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "10")
			writeEnvelope(w, http.StatusTooManyRequests, api.ErrorResponse{
				ErrorType: types.ErrRateLimit, Message: "slow down", RetryAfterSeconds: 10,
			})
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	// 计算得到的退避为 3000ms
	c := newTestClient(t, srv.URL, rec, WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: 3 * time.Second, MaxDelay: 30 * time.Second}))

	require.NoError(t, c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{}, nil))
	delays := rec.recorded()
	require.Len(t, delays, 1)
	assert.GreaterOrEqual(t, delays[0], 10*time.Second)
}

func TestCall_RetryAfterFromBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeEnvelope(w, http.StatusTooManyRequests, api.ErrorResponse{
				ErrorType: types.ErrRateLimit, Message: "slow down", RetryAfterSeconds: 7,
			})
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, rec)

	require.NoError(t, c.Call(testutil.TestContext(t), "/x", nil, nil))
	assert.Equal(t, []time.Duration{7 * time.Second}, rec.recorded())
}

func TestCall_AttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, rec)

	err := c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{}, nil,
		WithTimeout(50*time.Millisecond), WithMaxRetries(1))
	te := testutil.AssertErrorType(t, err, types.ErrTimeout)
	assert.Equal(t, http.StatusRequestTimeout, te.HTTPStatus)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCall_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, url, rec)

	err := c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{}, nil, WithMaxRetries(2))
	te := testutil.AssertErrorType(t, err, types.ErrNetwork)
	assert.Zero(t, te.HTTPStatus)
	assert.Len(t, rec.recorded(), 2)
}

func TestCall_UnparseableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	rec := &sleepRecorder{}
	c := newTestClient(t, srv.URL, rec)

	var out map[string]any
	err := c.Call(testutil.TestContext(t), "/api/clarify", map[string]string{}, &out)
	te := testutil.AssertErrorType(t, err, types.ErrParse)
	assert.Equal(t, http.StatusOK, te.HTTPStatus)
	assert.Empty(t, rec.recorded())
}

func TestCall_NonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, &sleepRecorder{})
	err := c.Call(testutil.TestContext(t), "/x", nil, nil)
	te := testutil.AssertErrorType(t, err, types.ErrServer)
	assert.Equal(t, http.StatusTeapot, te.HTTPStatus)
}

func TestCall_ParentCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.URL, WithSleep(func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}))

	err := c.Call(ctx, "/x", nil, nil)
	te := testutil.AssertErrorType(t, err, types.ErrNetwork)
	assert.ErrorIs(t, te, context.Canceled)
}

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, api.PathVersion, r.URL.Path)
		_, _ = w.Write([]byte(`{"version":"1.2.3"}`))
	}))
	defer srv.Close()

	var info api.VersionInfo
	require.NoError(t, New(srv.URL).Get(testutil.TestContext(t), api.PathVersion, &info))
	assert.Equal(t, "1.2.3", info.Version)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 10*time.Second, parseRetryAfter("10"))
	assert.Zero(t, parseRetryAfter(""))
	assert.Zero(t, parseRetryAfter("-1"))
	assert.Zero(t, parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
