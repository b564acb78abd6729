package providers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BaSui01/claritycast/llm"
)

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		msg       string
		code      llm.ErrorCode
		retryable bool
	}{
		{http.StatusUnauthorized, "bad key", llm.ErrUnauthorized, false},
		{http.StatusForbidden, "nope", llm.ErrForbidden, false},
		{http.StatusNotFound, "model missing", llm.ErrModelNotFound, false},
		{http.StatusTooManyRequests, "slow down", llm.ErrRateLimited, true},
		{http.StatusBadRequest, "Quota exceeded for metric", llm.ErrQuotaExceeded, false},
		{http.StatusBadRequest, "bad field", llm.ErrInvalidRequest, false},
		{http.StatusGatewayTimeout, "late", llm.ErrUpstreamTimeout, true},
		{http.StatusServiceUnavailable, "overloaded", llm.ErrUpstreamError, true},
		{http.StatusInternalServerError, "boom", llm.ErrUpstreamError, true},
		{418, "teapot", llm.ErrUpstreamError, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", tt.status, tt.msg), func(t *testing.T) {
			e := MapHTTPError(tt.status, tt.msg, "gemini")
			assert.Equal(t, tt.code, e.Code)
			assert.Equal(t, tt.retryable, e.Retryable)
			assert.Equal(t, tt.status, e.HTTPStatus)
			assert.Equal(t, "gemini", e.Provider)
		})
	}
}

func TestParseRetryAfterHeader(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"10", 10 * time.Second},
		{" 3 ", 3 * time.Second},
		{"-5", 0},
		{"soon", 0},
		{now.Add(30 * time.Second).Format(http.TimeFormat), 30 * time.Second},
		{now.Add(-time.Minute).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseRetryAfterHeader(tt.in, now), "input %q", tt.in)
	}
}

func TestReadErrorMessage(t *testing.T) {
	assert.Equal(t, "bad (type: invalid)", ReadErrorMessage(strings.NewReader(`{"error":{"message":"bad","type":"invalid"}}`)))
	assert.Equal(t, "gone (status: NOT_FOUND)", ReadErrorMessage(strings.NewReader(`{"error":{"message":"gone","status":"NOT_FOUND"}}`)))
	assert.Equal(t, "plain text", ReadErrorMessage(strings.NewReader("plain text\n")))
	assert.Equal(t, "failed to read error response", ReadErrorMessage(errReader{}))
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestChooseModel(t *testing.T) {
	assert.Equal(t, "req-model", ChooseModel(&llm.ChatRequest{Model: "models/req-model"}, "cfg", "fb"))
	assert.Equal(t, "cfg", ChooseModel(&llm.ChatRequest{}, "cfg", "fb"))
	assert.Equal(t, "fb", ChooseModel(nil, "", "fb"))
}

func TestIsModelNotFound(t *testing.T) {
	assert.True(t, IsModelNotFound(MapHTTPError(404, "x", "gemini")))
	assert.True(t, IsModelNotFound(fmt.Errorf("wrap: %w", MapHTTPError(404, "x", "gemini"))))
	assert.True(t, IsModelNotFound(errors.New("model gemini-x not found")))
	assert.False(t, IsModelNotFound(MapHTTPError(500, "x", "gemini")))
	assert.False(t, IsModelNotFound(nil))
}
