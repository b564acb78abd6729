// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	testutil.AssertJSONEqual(t, expected, actual)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
//
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, 30*time.Second)
}

// TestContextWithTimeout 返回带指定超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertJSONEqual 比较两个值的 JSON 表示
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()
	assert.JSONEq(t, MustJSON(expected), MustJSON(actual))
}

// AssertErrorType checks that err is a *types.Error of the given type.
func AssertErrorType(t *testing.T, err error, want types.ErrorType) *types.Error {
	t.Helper()
	require.Error(t, err)
	var te *types.Error
	require.True(t, errors.As(err, &te), "expected *types.Error, got %T: %v", err, err)
	assert.Equal(t, want, te.Type)
	return te
}

// AssertEventuallyTrue 轮询直到条件满足
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	assert.Eventually(t, condition, timeout, 10*time.Millisecond)
}

// =============================================================================
// 📦 数据辅助
// =============================================================================

// MustJSON 序列化，失败时 panic
func MustJSON(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MustParseJSON 反序列化，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}
