package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// GeminiConfig Gemini Provider 配置
type GeminiConfig struct {
	BaseProviderConfig `yaml:",inline"`

	// FallbackModel 在配置的模型返回 404 时使用，为空则不回退
	FallbackModel string `json:"fallback_model,omitempty" yaml:"fallback_model,omitempty"`

	// JSONMode 请求 responseMimeType=application/json
	JSONMode bool `json:"json_mode,omitempty" yaml:"json_mode,omitempty"`
}
