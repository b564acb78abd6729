package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the stable, client-visible cause of a failure.
type ErrorType string

// Closed error taxonomy. Each type has exactly one constructor below.
const (
	ErrInvalidInput ErrorType = "INVALID_INPUT"
	ErrAI           ErrorType = "AI_ERROR"
	ErrRateLimit    ErrorType = "RATE_LIMIT"
	ErrTimeout      ErrorType = "TIMEOUT"
	ErrNetwork      ErrorType = "NETWORK_ERROR"
	ErrServer       ErrorType = "SERVER_ERROR"
	ErrParse        ErrorType = "PARSE_ERROR"
)

// Known reports whether t belongs to the taxonomy.
func (t ErrorType) Known() bool {
	switch t {
	case ErrInvalidInput, ErrAI, ErrRateLimit, ErrTimeout, ErrNetwork, ErrServer, ErrParse:
		return true
	}
	return false
}

// Issue is one field-level violation.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// DebugInfo 仅在调试模式下随错误响应返回，不影响控制流
type DebugInfo struct {
	Label         string    `json:"label,omitempty"`
	RawPreview    string    `json:"rawPreview,omitempty"`
	AttemptIssues [][]Issue `json:"attemptIssues,omitempty"`
	Cause         string    `json:"cause,omitempty"`
}

// Error represents a typed failure with the fields its type needs.
type Error struct {
	Type              ErrorType  `json:"errorType"`
	Message           string     `json:"message"`
	HTTPStatus        int        `json:"status,omitempty"`
	Retryable         bool       `json:"-"`
	Details           []Issue    `json:"details,omitempty"`
	RetryAfterSeconds int        `json:"retryAfterSeconds,omitempty"`
	Debug             *DebugInfo `json:"debug,omitempty"`
	Cause             error      `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by type, so errors.Is(err, &Error{Type: ErrTimeout}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// =============================================================================
// 构造函数（每种错误类型一个）
// =============================================================================

// NewInvalidInput 请求在调用模型之前就未通过校验
func NewInvalidInput(message string, issues ...Issue) *Error {
	return &Error{
		Type:       ErrInvalidInput,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    issues,
	}
}

// NewAIError 模型侧失败：空响应、提取失败、修复后仍校验失败
func NewAIError(message string) *Error {
	return &Error{
		Type:       ErrAI,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Retryable:  true,
	}
}

// NewRateLimit 提供方配额耗尽
func NewRateLimit(message string, retryAfterSeconds int) *Error {
	return &Error{
		Type:              ErrRateLimit,
		Message:           message,
		HTTPStatus:        http.StatusTooManyRequests,
		Retryable:         true,
		RetryAfterSeconds: retryAfterSeconds,
	}
}

// NewTimeout 客户端单次尝试超过截止时间
func NewTimeout(message string) *Error {
	return &Error{
		Type:       ErrTimeout,
		Message:    message,
		HTTPStatus: http.StatusRequestTimeout,
		Retryable:  true,
	}
}

// NewNetworkError 传输层失败，没有任何响应
func NewNetworkError(message string) *Error {
	return &Error{
		Type:      ErrNetwork,
		Message:   message,
		Retryable: true,
	}
}

// NewServerError is a non-2xx response whose body did not name a known type.
func NewServerError(status int, message string) *Error {
	return &Error{
		Type:       ErrServer,
		Message:    message,
		HTTPStatus: status,
		Retryable:  IsRetryableStatus(status),
	}
}

// NewParseError is a response body that could not be decoded.
func NewParseError(status int, message string) *Error {
	return &Error{
		Type:       ErrParse,
		Message:    message,
		HTTPStatus: status,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithDebug attaches diagnostics.
func (e *Error) WithDebug(d *DebugInfo) *Error {
	e.Debug = d
	return e
}

// =============================================================================
// 辅助函数
// =============================================================================

// IsRetryableStatus reports whether an HTTP status is a transient failure.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// TypeOf extracts the error type, or "" for untyped errors.
func TypeOf(err error) ErrorType {
	if e, ok := AsError(err); ok {
		return e.Type
	}
	return ""
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}
