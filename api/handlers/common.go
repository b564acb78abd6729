package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/api"
	"github.com/BaSui01/claritycast/internal/ctxkeys"
	"github.com/BaSui01/claritycast/types"
)

// DefaultMaxBodyBytes 请求体上限（1 MiB）
const DefaultMaxBodyBytes int64 = 1 << 20

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 头已写出，编码失败无法再补救
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError converts err into the error envelope. Non-typed errors become
// SERVER_ERROR 500. Debug data is included only for debug-mode requests.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	te, ok := types.AsError(err)
	if !ok {
		te = types.NewServerError(http.StatusInternalServerError, "internal server error").WithCause(err)
	}

	status := te.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if te.Type == types.ErrRateLimit && te.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(te.RetryAfterSeconds))
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("error_type", string(te.Type)),
			zap.String("message", te.Message),
			zap.Int("status", status),
		}
		if id, ok := ctxkeys.RequestID(r.Context()); ok {
			fields = append(fields, zap.String("request_id", id))
		}
		if te.Cause != nil {
			fields = append(fields, zap.Error(te.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", fields...)
		} else {
			logger.Warn("API error", fields...)
		}
	}

	WriteJSON(w, status, api.NewErrorResponse(te, ctxkeys.Debug(r.Context())))
}

// =============================================================================
// 🛡️ 请求读取
// =============================================================================

// ReadJSONBody checks the content type and reads at most maxBytes of body.
func ReadJSONBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, types.NewInvalidInput("request body is empty")
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return nil, types.NewInvalidInput("Content-Type must be application/json")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, types.NewInvalidInput("could not read request body").WithCause(err)
	}
	if int64(len(data)) > maxBytes {
		return nil, types.NewInvalidInput("request body too large").
			WithHTTPStatus(http.StatusRequestEntityTooLarge)
	}
	if len(data) == 0 {
		return nil, types.NewInvalidInput("request body is empty")
	}
	if !json.Valid(data) {
		return nil, types.NewInvalidInput("request body is not valid JSON")
	}
	return data, nil
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码与响应大小
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
	Bytes      int64
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.Bytes += int64(n)
	return n, err
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
