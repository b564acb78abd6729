// MockProvider 的 LLM 提供商测试模拟实现。
//
// 支持脚本化响应序列、错误注入与调用记录。
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/claritycast/llm"
)

// --- MockProvider 结构 ---

// Reply is one scripted provider outcome.
type Reply struct {
	Text string
	Err  error
}

// MockProvider 是 LLM Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	// 响应配置
	response string
	script   []Reply
	err      error

	// Token 使用统计
	promptTokens     int
	completionTokens int

	// 调用记录
	calls          []MockProviderCall
	completionFunc func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// 行为控制
	delay     time.Duration
	healthErr error
}

// MockProviderCall 记录单次调用
type MockProviderCall struct {
	Request  *llm.ChatRequest
	Response *llm.ChatResponse
	Error    error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{
		response:         "Mock response",
		promptTokens:     10,
		completionTokens: 20,
	}
}

// WithResponse 设置固定响应内容（脚本耗尽后使用）
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithResponses 按调用顺序依次返回这些文本
func (m *MockProvider) WithResponses(texts ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.script = append(m.script, Reply{Text: t})
	}
	return m
}

// WithScript 按调用顺序依次返回这些结果
func (m *MockProvider) WithScript(replies ...Reply) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTokenUsage 设置 Token 使用量
func (m *MockProvider) WithTokenUsage(prompt, completion int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.promptTokens = prompt
	m.completionTokens = completion
	return m
}

// WithDelay 设置响应延迟，期间响应 ctx 取消
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithHealthError 设置健康检查错误
func (m *MockProvider) WithHealthError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthErr = err
	return m
}

// WithCompletionFunc 设置自定义 Completion 函数
func (m *MockProvider) WithCompletionFunc(fn func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionFunc = fn
	return m
}

// --- Provider 接口实现 ---

// Name 返回 Provider 名称
func (m *MockProvider) Name() string {
	return "mock"
}

// HealthCheck 执行健康检查
func (m *MockProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.healthErr != nil {
		return &llm.HealthStatus{Healthy: false}, m.healthErr
	}
	return &llm.HealthStatus{Healthy: true, Latency: time.Millisecond}, nil
}

// Completion 生成响应
func (m *MockProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.mu.RLock()
	delay := m.delay
	m.mu.RUnlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			err := fmt.Errorf("mock provider: %w", ctx.Err())
			m.record(MockProviderCall{Request: req, Error: err})
			return nil, err
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	fn := m.completionFunc
	m.mu.Unlock()

	// 使用自定义函数
	if fn != nil {
		resp, err := fn(ctx, req)
		m.record(MockProviderCall{Request: req, Response: resp, Error: err})
		return resp, err
	}

	m.mu.Lock()
	text := m.response
	err := m.err
	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		text, err = next.Text, next.Err
	}
	m.mu.Unlock()

	if err != nil {
		m.record(MockProviderCall{Request: req, Error: err})
		return nil, err
	}

	resp := m.buildResponse(req, text)
	m.record(MockProviderCall{Request: req, Response: resp})
	return resp, nil
}

func (m *MockProvider) buildResponse(req *llm.ChatRequest, text string) *llm.ChatResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &llm.ChatResponse{
		ID:       "mock-response-id",
		Provider: "mock",
		Model:    req.Model,
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      llm.Message{Role: llm.RoleAssistant, Content: text},
			},
		},
		Usage: llm.ChatUsage{
			PromptTokens:     m.promptTokens,
			CompletionTokens: m.completionTokens,
			TotalTokens:      m.promptTokens + m.completionTokens,
		},
		CreatedAt: time.Now(),
	}
}

func (m *MockProvider) record(call MockProviderCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// --- 调用记录查询 ---

// Calls 返回所有调用记录的副本
func (m *MockProvider) Calls() []MockProviderCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]MockProviderCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount 返回调用次数
func (m *MockProvider) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// LastRequest 返回最后一次请求
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1].Request
}

// UserPrompts 返回每次调用中 user 消息的内容
func (m *MockProvider) UserPrompts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		for _, msg := range c.Request.Messages {
			if msg.Role == llm.RoleUser {
				out = append(out, msg.Content)
			}
		}
	}
	return out
}

// Reset 清空调用记录与脚本
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
}

var _ llm.Provider = (*MockProvider)(nil)
