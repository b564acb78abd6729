package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewAIError("model output invalid").
		WithCause(root).
		WithDebug(&DebugInfo{RawPreview: "{"})

	assert.Equal(t, ErrAI, TypeOf(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, "[AI_ERROR] model output invalid: root", err.Error())
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
}

func TestError_Constructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       *Error
		typ       ErrorType
		status    int
		retryable bool
	}{
		{"invalid input", NewInvalidInput("bad", Issue{Path: "mode", Message: "required"}), ErrInvalidInput, 400, false},
		{"ai", NewAIError("x"), ErrAI, 500, true},
		{"rate limit", NewRateLimit("slow down", 30), ErrRateLimit, 429, true},
		{"timeout", NewTimeout("late"), ErrTimeout, 408, true},
		{"network", NewNetworkError("down"), ErrNetwork, 0, true},
		{"server 503", NewServerError(503, "unavailable"), ErrServer, 503, true},
		{"server 404", NewServerError(404, "missing"), ErrServer, 404, false},
		{"parse", NewParseError(200, "garbage"), ErrParse, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.True(t, tt.err.Type.Known())
		})
	}
}

func TestError_IsMatchesByType(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("call failed: %w", NewTimeout("attempt 2"))
	assert.True(t, errors.Is(wrapped, &Error{Type: ErrTimeout}))
	assert.False(t, errors.Is(wrapped, &Error{Type: ErrNetwork}))

	e, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "attempt 2", e.Message)

	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestError_RetryAfterAndDetails(t *testing.T) {
	t.Parallel()

	e := NewRateLimit("quota", 42)
	assert.Equal(t, 42, e.RetryAfterSeconds)

	in := NewInvalidInput("invalid", Issue{Path: "text", Message: "must not be empty"})
	require.Len(t, in.Details, 1)
	assert.Equal(t, "text: must not be empty", in.Details[0].String())
	assert.Equal(t, "just a message", Issue{Message: "just a message"}.String())
}

func TestIsRetryableStatus(t *testing.T) {
	t.Parallel()

	for _, s := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(s), "status %d", s)
	}
	for _, s := range []int{200, 400, 401, 403, 404, 409, 422, 501} {
		assert.False(t, IsRetryableStatus(s), "status %d", s)
	}
}
