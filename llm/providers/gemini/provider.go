package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/internal/tlsutil"
	"github.com/BaSui01/claritycast/llm"
	"github.com/BaSui01/claritycast/llm/providers"
)

const (
	// DefaultModel 未配置 GEMINI_MODEL 时使用
	DefaultModel   = "gemini-3-flash-preview"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	mimeTypeJSON   = "application/json"
)

// GeminiProvider 实现 Google Gemini 的文本补全
// 1. 使用 x-goog-api-key 请求头认证
// 2. system 与 user 提示合并为一条 user 消息发送
// 3. 配置的模型不存在时回退到 FallbackModel
type GeminiProvider struct {
	cfg    providers.GeminiConfig
	client *http.Client
	logger *zap.Logger
}

// NewGeminiProvider 创建 Gemini Provider
func NewGeminiProvider(cfg providers.GeminiConfig, logger *zap.Logger) *GeminiProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.Model = providers.NormalizeModelName(cfg.Model)
	cfg.FallbackModel = providers.NormalizeModelName(cfg.FallbackModel)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GeminiProvider{
		cfg:    cfg,
		client: tlsutil.HTTPClient(timeout),
		logger: logger.With(zap.String("provider", "gemini")),
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Model returns the configured model name after normalization.
func (p *GeminiProvider) Model() string {
	return providers.ChooseModel(nil, p.cfg.Model, DefaultModel)
}

func (p *GeminiProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	_, err := p.ListModels(ctx)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, fmt.Errorf("gemini health check failed: %w", err)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// ModelInfo 是 ListModels 的单个条目
type ModelInfo struct {
	ID               string   `json:"id"`
	DisplayName      string   `json:"display_name,omitempty"`
	InputTokenLimit  int      `json:"input_token_limit,omitempty"`
	OutputTokenLimit int      `json:"output_token_limit,omitempty"`
	Methods          []string `json:"methods,omitempty"`
}

// ListModels 获取 Gemini 支持的模型列表
func (p *GeminiProvider) ListModels(ctx context.Context) ([]ModelInfo, error) {
	endpoint := fmt.Sprintf("%s/v1beta/models", strings.TrimRight(p.cfg.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, p.readError(resp)
	}

	var modelsResp struct {
		Models []struct {
			Name             string   `json:"name"`
			DisplayName      string   `json:"displayName"`
			InputTokenLimit  int      `json:"inputTokenLimit"`
			OutputTokenLimit int      `json:"outputTokenLimit"`
			SupportedMethods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
			Cause:      err,
		}
	}

	models := make([]ModelInfo, 0, len(modelsResp.Models))
	for _, m := range modelsResp.Models {
		models = append(models, ModelInfo{
			ID:               providers.NormalizeModelName(m.Name),
			DisplayName:      m.DisplayName,
			InputTokenLimit:  m.InputTokenLimit,
			OutputTokenLimit: m.OutputTokenLimit,
			Methods:          m.SupportedMethods,
		})
	}
	return models, nil
}

// LogModels 调试模式下打印可用模型，失败只记录日志
func (p *GeminiProvider) LogModels(ctx context.Context) {
	models, err := p.ListModels(ctx)
	if err != nil {
		p.logger.Warn("failed to list gemini models", zap.Error(err))
		return
	}
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	p.logger.Info("available gemini models", zap.Int("count", len(ids)), zap.Strings("models", ids))
}

// Gemini 消息结构
type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user, model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float32       `json:"temperature,omitempty"`
	MaxOutputTokens  int           `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string        `json:"responseMimeType,omitempty"`
	ResponseSchema   *geminiSchema `json:"responseSchema,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
	ResponseID    string               `json:"responseId,omitempty"`
}

type geminiErrorResp struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Type       string `json:"@type"`
			RetryDelay string `json:"retryDelay,omitempty"`
		} `json:"details"`
	} `json:"error"`
}

func (p *GeminiProvider) buildHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

// buildPrompt 合并所有消息：system 在前，之后按顺序拼接，用空行分隔
func buildPrompt(msgs []llm.Message) string {
	var system, rest []string
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m.Content)
	}
	return strings.Join(append(system, rest...), "\n\n")
}

// Completion 调用 generateContent；模型不存在时按配置回退一次
func (p *GeminiProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	model := providers.ChooseModel(req, p.cfg.Model, DefaultModel)

	resp, err := p.generate(ctx, model, req)
	if err == nil {
		return resp, nil
	}

	fallback := p.cfg.FallbackModel
	if fallback != "" && fallback != model && providers.IsModelNotFound(err) && ctx.Err() == nil {
		p.logger.Warn("gemini model not found, falling back",
			zap.String("model", model),
			zap.String("fallback_model", fallback),
		)
		return p.generate(ctx, fallback, req)
	}
	return nil, err
}

func (p *GeminiProvider) generate(ctx context.Context, model string, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: buildPrompt(req.Messages)}},
		}},
	}

	gc := &geminiGenerationConfig{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxTokens,
	}
	if req.ResponseFormat == llm.ResponseFormatJSON || p.cfg.JSONMode {
		gc.ResponseMimeType = mimeTypeJSON
		// responseSchema 仅在 JSON 输出下有效；转换失败时只发 mime type
		schema, err := toResponseSchema(req.ResponseSchema)
		if err != nil {
			p.logger.Debug("response schema not sent", zap.Error(err))
		}
		gc.ResponseSchema = schema
	}
	if *gc != (geminiGenerationConfig{}) {
		body.GenerationConfig = gc
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(p.cfg.BaseURL, "/"), model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(err)
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		return nil, p.readError(resp)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    fmt.Sprintf("decode gemini response: %v", err),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   p.Name(),
			Cause:      err,
		}
	}

	out := toGeminiChatResponse(geminiResp, p.Name(), model)
	if out.Text() == "" {
		return nil, &llm.Error{
			Code:       llm.ErrEmptyResponse,
			Message:    "gemini returned empty response",
			HTTPStatus: http.StatusBadGateway,
			Provider:   p.Name(),
		}
	}

	p.logger.Debug("gemini completion",
		zap.String("model", model),
		zap.Duration("latency", time.Since(start)),
		zap.Int("total_tokens", out.Usage.TotalTokens),
	)
	return out, nil
}

func (p *GeminiProvider) transportError(err error) *llm.Error {
	code := llm.ErrUpstreamError
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
		code = llm.ErrUpstreamTimeout
		status = http.StatusGatewayTimeout
	}
	return &llm.Error{
		Code:       code,
		Message:    err.Error(),
		HTTPStatus: status,
		Retryable:  true,
		Provider:   p.Name(),
		Cause:      err,
	}
}

func isClientTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func (p *GeminiProvider) readError(resp *http.Response) *llm.Error {
	msg, retryAfter := readGeminiErr(resp.Body)
	if retryAfter == 0 {
		retryAfter = providers.ParseRetryAfterHeader(resp.Header.Get("Retry-After"), time.Now())
	}
	e := providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	e.RetryAfter = retryAfter
	return e
}

// readGeminiErr 解析错误消息以及 RetryInfo.retryDelay
func readGeminiErr(body io.Reader) (string, time.Duration) {
	data, _ := io.ReadAll(io.LimitReader(body, 64<<10))
	var errResp geminiErrorResp
	if err := json.Unmarshal(data, &errResp); err != nil || errResp.Error.Message == "" {
		return providers.ReadErrorMessage(bytes.NewReader(data)), 0
	}

	var retryAfter time.Duration
	for _, d := range errResp.Error.Details {
		if d.RetryDelay == "" {
			continue
		}
		if dur, err := time.ParseDuration(d.RetryDelay); err == nil {
			retryAfter = dur
			break
		}
	}

	msg := errResp.Error.Message
	if errResp.Error.Status != "" {
		msg = fmt.Sprintf("%s (status: %s)", msg, errResp.Error.Status)
	}
	return msg, retryAfter
}

func toGeminiChatResponse(gr geminiResponse, provider, model string) *llm.ChatResponse {
	choices := make([]llm.ChatChoice, 0, len(gr.Candidates))
	for _, candidate := range gr.Candidates {
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			sb.WriteString(part.Text)
		}
		choices = append(choices, llm.ChatChoice{
			Index:        candidate.Index,
			FinishReason: candidate.FinishReason,
			Message: llm.Message{
				Role:    llm.RoleAssistant,
				Content: sb.String(),
			},
		})
	}

	resp := &llm.ChatResponse{
		ID:        gr.ResponseID,
		Provider:  provider,
		Model:     model,
		Choices:   choices,
		CreatedAt: time.Now(),
	}
	if gr.UsageMetadata != nil {
		resp.Usage = llm.ChatUsage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		}
	}
	return resp
}
