package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// 统一的 LLM 错误码，用于对齐 HTTP 状态、可重试性与限流分类。
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"      // 参数/格式错误
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"         // 未授权或密钥失效
	ErrForbidden           ErrorCode = "LLM_FORBIDDEN"            // 权限或内容策略拒绝
	ErrModelNotFound       ErrorCode = "LLM_MODEL_NOT_FOUND"      // 模型不存在，可回退
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"         // 上游限流
	ErrQuotaExceeded       ErrorCode = "LLM_QUOTA_EXCEEDED"       // 额度/配额用尽
	ErrEmptyResponse       ErrorCode = "LLM_EMPTY_RESPONSE"       // 响应中没有文本
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"     // 上游超时
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"       // 上游 5xx/网络错误
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE" // Provider 不可用
)

// Error is a provider failure. RetryAfter carries the provider's structured
// retry delay when one was sent.
type Error struct {
	Code       ErrorCode     `json:"code"`
	Message    string        `json:"message"`
	HTTPStatus int           `json:"http_status"`
	Retryable  bool          `json:"retryable"`
	Provider   string        `json:"provider,omitempty"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
	Cause      error         `json:"-"`
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.HTTPStatus)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
}

// ResponseFormat 约束输出格式
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

type ChatRequest struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float32           `json:"temperature,omitempty"`
	ResponseFormat ResponseFormat    `json:"response_format,omitempty"`
	ResponseSchema json.RawMessage   `json:"response_schema,omitempty"` // JSON Schema，Provider 可转换为原生约束
	Timeout        time.Duration     `json:"timeout,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type ChatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason,omitempty"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID        string       `json:"id,omitempty"`
	Provider  string       `json:"provider,omitempty"`
	Model     string       `json:"model"`
	Choices   []ChatChoice `json:"choices"`
	Usage     ChatUsage    `json:"usage,omitempty"`
	CreatedAt time.Time    `json:"created_at,omitempty"`
}

// Text returns the first choice's content, or "".
func (r *ChatResponse) Text() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// HealthStatus 表示 Provider 健康检查结果。
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
}

// Provider 是文本补全的统一适配接口。
// 返回的文本不保证是纯 JSON，调用方需要自行提取。
type Provider interface {
	// Completion 发起同步请求，返回完整响应
	Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// HealthCheck 执行轻量级健康检查
	HealthCheck(ctx context.Context) (*HealthStatus, error)

	// Name 返回 Provider 的唯一标识
	Name() string
}
