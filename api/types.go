package api

import (
	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 📡 接口路径
// =============================================================================

// 服务端路由，客户端与 CLI 共用
const (
	PathClarify     = "/api/clarify"
	PathCommunicate = "/api/communicate"
	PathHealth      = "/health"
	PathHealthz     = "/healthz"
	PathReady       = "/ready"
	PathVersion     = "/version"
)

// HeaderRequestID 请求 ID 响应头
const HeaderRequestID = "X-Request-ID"

// =============================================================================
// ❌ 错误响应
// =============================================================================

// ErrorResponse 所有非 2xx 响应的统一结构
// @Description 错误响应结构
type ErrorResponse struct {
	// 错误类型（INVALID_INPUT / AI_ERROR / RATE_LIMIT ...）
	ErrorType types.ErrorType `json:"errorType" example:"INVALID_INPUT"`
	// 可读的错误信息
	Message string `json:"message" example:"invalid request"`
	// 字段级校验问题，仅 INVALID_INPUT
	Details []types.Issue `json:"details,omitempty"`
	// 建议的重试等待秒数，仅 RATE_LIMIT
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty" example:"30"`
	// 调试信息，仅调试模式
	Debug *types.DebugInfo `json:"debug,omitempty"`
}

// NewErrorResponse converts a typed error into the wire envelope. Debug data
// is kept only when includeDebug is set.
func NewErrorResponse(err *types.Error, includeDebug bool) ErrorResponse {
	resp := ErrorResponse{
		ErrorType:         err.Type,
		Message:           err.Message,
		Details:           err.Details,
		RetryAfterSeconds: err.RetryAfterSeconds,
	}
	if includeDebug {
		resp.Debug = err.Debug
	}
	return resp
}

// ToError converts a decoded envelope back into a typed error for the given
// HTTP status.
func (r ErrorResponse) ToError(status int) *types.Error {
	e := &types.Error{
		Type:              r.ErrorType,
		Message:           r.Message,
		HTTPStatus:        status,
		Retryable:         types.IsRetryableStatus(status),
		Details:           r.Details,
		RetryAfterSeconds: r.RetryAfterSeconds,
		Debug:             r.Debug,
	}
	if e.Type == "" {
		e.Type = types.ErrServer
	}
	if e.Message == "" {
		e.Message = "request failed"
	}
	return e
}

// =============================================================================
// ℹ️ 版本
// =============================================================================

// VersionInfo /version 响应
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GitCommit string `json:"git_commit,omitempty"`
}
