package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 🌐 HTTP 客户端
// =============================================================================

// Client calls the ClarityCast API with per-attempt deadlines, exponential
// backoff and server-supplied retry-after floors.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
	policy     RetryPolicy
	timeout    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     JitterFunc
}

// Option 配置 Client
type Option func(*Client)

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient 设置底层 http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithRetryPolicy 设置默认重试策略
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p.normalized() }
}

// WithDefaultTimeout 设置默认单次尝试超时
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSleep 替换退避等待函数，测试用
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithJitter 替换抖动来源
func WithJitter(j JitterFunc) Option {
	return func(c *Client) {
		if j != nil {
			c.jitter = j
		}
	}
}

// WithTracer 设置 tracer
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// New 创建客户端
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
		tracer:     otel.Tracer("github.com/BaSui01/claritycast/client"),
		policy:     DefaultRetryPolicy(),
		timeout:    DefaultTimeout,
		sleep:      sleepContext,
		jitter:     UniformJitter,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "client"))
	return c
}

// BaseURL 返回服务地址
func (c *Client) BaseURL() string { return c.baseURL }

// =============================================================================
// 📞 单次调用选项
// =============================================================================

type callOptions struct {
	timeout time.Duration
	policy  RetryPolicy
	onRetry func(attempt, maxRetries int, delay time.Duration)
}

// CallOption 单次调用的覆盖项
type CallOption func(*callOptions)

// WithTimeout 单次尝试的超时
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries 覆盖最大重试次数
func WithMaxRetries(n int) CallOption {
	return func(o *callOptions) { o.policy.MaxRetries = n }
}

// WithBackoff 覆盖基础延迟与上限
func WithBackoff(base, max time.Duration) CallOption {
	return func(o *callOptions) {
		o.policy.BaseDelay = base
		o.policy.MaxDelay = max
	}
}

// WithOnRetry is called before every wait. It does not affect control flow.
func WithOnRetry(fn func(attempt, maxRetries int, delay time.Duration)) CallOption {
	return func(o *callOptions) { o.onRetry = fn }
}

// =============================================================================
// 🔁 调用
// =============================================================================

// Call POSTs body as JSON to path and decodes the 2xx response into out.
func (c *Client) Call(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewInvalidInput("request could not be encoded").WithCause(err)
	}
	return c.Do(ctx, http.MethodPost, path, payload, out, opts...)
}

// Get 发送 GET 请求
func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

// Do runs the retry loop for one logical call. The returned error is always
// a *types.Error.
func (c *Client) Do(ctx context.Context, method, path string, payload []byte, out any, opts ...CallOption) error {
	o := callOptions{timeout: c.timeout, policy: c.policy}
	for _, opt := range opts {
		opt(&o)
	}
	policy := o.policy.normalized()

	ctx, span := c.tracer.Start(ctx, "client.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
		))
	defer span.End()

	state := Start()
	for {
		switch state.Phase {
		case PhaseAttempting:
			outcome := c.attempt(ctx, method, path, payload, out, o.timeout)
			if ctx.Err() != nil {
				return c.fail(span, types.NewNetworkError("request canceled").WithCause(ctx.Err()))
			}
			state = Next(state, outcome, policy, c.jitter())

		case PhaseWaiting:
			c.logger.Debug("retrying request",
				zap.String("path", path),
				zap.Int("attempt", state.Attempt),
				zap.Int("max_retries", policy.MaxRetries),
				zap.Duration("delay", state.Delay),
				zap.Stringer("delay_source", state.Source),
				zap.String("error_type", string(state.Err.Type)))
			if o.onRetry != nil {
				o.onRetry(state.Attempt, policy.MaxRetries, state.Delay)
			}
			if err := c.sleep(ctx, state.Delay); err != nil {
				return c.fail(span, types.NewNetworkError("request canceled").WithCause(err))
			}
			state = Next(state, Outcome{}, policy, 0)

		case PhaseSucceeded:
			span.SetAttributes(attribute.Int("client.attempts", state.Attempt))
			return nil

		default:
			span.SetAttributes(attribute.Int("client.attempts", state.Attempt))
			if state.Err == nil {
				return c.fail(span, types.NewServerError(0, "maximum retries reached"))
			}
			return c.fail(span, state.Err)
		}
	}
}

func (c *Client) fail(span trace.Span, err *types.Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Type))
	return err
}

// attempt 执行一次 HTTP 请求并分类结果
func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any, timeout time.Duration) Outcome {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, c.baseURL+path, body)
	if err != nil {
		return Outcome{Err: types.NewInvalidInput("invalid request URL").WithCause(err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(api.HeaderRequestID, uuid.NewString())
	otel.GetTextMapPropagator().Inject(actx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(ctx, actx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportFailure(ctx, actx, err)
	}

	status := resp.StatusCode
	if status >= 200 && status < 300 {
		if out != nil {
			if err := json.Unmarshal(data, out); err != nil {
				return Outcome{Status: status, Err: types.NewParseError(status, "response body is not valid JSON").WithCause(err)}
			}
		}
		return Outcome{Status: status}
	}

	te := decodeErrorBody(status, data)
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
	if retryAfter == 0 && te.RetryAfterSeconds > 0 {
		retryAfter = time.Duration(te.RetryAfterSeconds) * time.Second
	}
	return Outcome{Status: status, Err: te, RetryAfter: retryAfter}
}

// transportFailure 区分单次超时与网络错误
func transportFailure(parent, attempt context.Context, err error) Outcome {
	if parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return Outcome{
			Status: http.StatusRequestTimeout,
			Err:    types.NewTimeout("request timed out").WithCause(err),
		}
	}
	return Outcome{Err: types.NewNetworkError("network error").WithCause(err)}
}

func decodeErrorBody(status int, data []byte) *types.Error {
	var env api.ErrorResponse
	if err := json.Unmarshal(data, &env); err == nil && env.ErrorType != "" {
		return env.ToError(status)
	}
	return types.NewServerError(status, fmt.Sprintf("server returned %d %s", status, http.StatusText(status)))
}

// parseRetryAfter 只支持秒数形式
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
