package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BaSui01/claritycast/llm"
)

// statusCodes 非 2xx 状态码到错误码与可重试标记的映射，未列出的走 default 分支
var statusCodes = map[int]struct {
	code      llm.ErrorCode
	retryable bool
}{
	http.StatusUnauthorized:       {llm.ErrUnauthorized, false},
	http.StatusForbidden:          {llm.ErrForbidden, false},
	http.StatusNotFound:           {llm.ErrModelNotFound, false},
	http.StatusTooManyRequests:    {llm.ErrRateLimited, true},
	http.StatusGatewayTimeout:     {llm.ErrUpstreamTimeout, true},
	http.StatusServiceUnavailable: {llm.ErrUpstreamError, true},
	http.StatusBadGateway:         {llm.ErrUpstreamError, true},
}

// quotaWords 400 响应里出现这些词时按配额耗尽处理（Gemini 免费层会这样返回）
var quotaWords = []string{"quota", "credit", "limit"}

// MapHTTPError 将非 2xx 响应映射为 llm.Error
func MapHTTPError(status int, msg string, provider string) *llm.Error {
	e := &llm.Error{
		Code:       llm.ErrUpstreamError,
		Message:    msg,
		HTTPStatus: status,
		Retryable:  status >= 500,
		Provider:   provider,
	}
	if m, ok := statusCodes[status]; ok {
		e.Code, e.Retryable = m.code, m.retryable
		return e
	}
	if status == http.StatusBadRequest {
		e.Code = llm.ErrInvalidRequest
		lower := strings.ToLower(msg)
		for _, w := range quotaWords {
			if strings.Contains(lower, w) {
				e.Code = llm.ErrQuotaExceeded
				break
			}
		}
	}
	return e
}

// ParseRetryAfterHeader 解析 Retry-After 头（秒数或 HTTP 日期），无法解析时返回 0
func ParseRetryAfterHeader(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// ReadErrorMessage 读取响应体中的错误消息
// 尝试解析 JSON 错误响应，失败则回退到原始文本
func ReadErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return "failed to read error response"
	}

	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		switch {
		case errResp.Error.Type != "":
			return fmt.Sprintf("%s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		case errResp.Error.Status != "":
			return fmt.Sprintf("%s (status: %s)", errResp.Error.Message, errResp.Error.Status)
		}
		return errResp.Error.Message
	}

	return strings.TrimSpace(string(data))
}

// ChooseModel 选择模型：请求 > 配置 > 兜底
func ChooseModel(req *llm.ChatRequest, defaultModel, fallbackModel string) string {
	if req != nil && req.Model != "" {
		return NormalizeModelName(req.Model)
	}
	if defaultModel != "" {
		return NormalizeModelName(defaultModel)
	}
	return fallbackModel
}

// NormalizeModelName strips the "models/" resource prefix some tools emit.
func NormalizeModelName(model string) string {
	return strings.TrimPrefix(strings.TrimSpace(model), "models/")
}

// IsModelNotFound reports whether err means the requested model does not exist.
func IsModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	var le *llm.Error
	if errors.As(err, &le) && (le.Code == llm.ErrModelNotFound || le.HTTPStatus == http.StatusNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") || strings.Contains(msg, "not found")
}

// SafeCloseBody 关闭响应体并丢弃剩余数据，方便连接复用
func SafeCloseBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
