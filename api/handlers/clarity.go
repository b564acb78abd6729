package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/clarity"
)

// =============================================================================
// 🧭 Clarity Handler
// =============================================================================

// ClarityService is the domain surface the handler depends on.
type ClarityService interface {
	Clarify(ctx context.Context, req clarity.ClarifyRequest) (clarity.Result, error)
	Communicate(ctx context.Context, req clarity.CommunicateRequest) (*clarity.CommunicateResult, error)
}

// ClarityHandler 处理 /api/clarify 与 /api/communicate
type ClarityHandler struct {
	service      ClarityService
	logger       *zap.Logger
	maxBodyBytes int64
}

// NewClarityHandler 创建处理器，maxBodyBytes <= 0 时使用 DefaultMaxBodyBytes
func NewClarityHandler(service ClarityService, maxBodyBytes int64, logger *zap.Logger) *ClarityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &ClarityHandler{
		service:      service,
		logger:       logger.With(zap.String("handler", "clarity")),
		maxBodyBytes: maxBodyBytes,
	}
}

// HandleClarify 处理 POST /api/clarify
// @Summary 澄清想法
// @Description 按模式返回结构化的澄清结果
// @Tags clarity
// @Accept json
// @Produce json
// @Param request body clarity.ClarifyRequest true "澄清请求"
// @Success 200 {object} clarity.DecisionResult "结果（按 problem_type 变化）"
// @Failure 400 {object} api.ErrorResponse "INVALID_INPUT"
// @Failure 429 {object} api.ErrorResponse "RATE_LIMIT"
// @Failure 500 {object} api.ErrorResponse "AI_ERROR"
// @Router /api/clarify [post]
func (h *ClarityHandler) HandleClarify(w http.ResponseWriter, r *http.Request) {
	data, err := ReadJSONBody(r, h.maxBodyBytes)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	req, err := clarity.ParseClarifyRequest(data)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Clarify(r.Context(), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// HandleCommunicate 处理 POST /api/communicate
// @Summary 改写消息
// @Description 为每个选定语境生成改写稿
// @Tags clarity
// @Accept json
// @Produce json
// @Param request body clarity.CommunicateRequest true "改写请求"
// @Success 200 {object} clarity.CommunicateResult "改写结果"
// @Failure 400 {object} api.ErrorResponse "INVALID_INPUT"
// @Failure 429 {object} api.ErrorResponse "RATE_LIMIT"
// @Failure 500 {object} api.ErrorResponse "AI_ERROR"
// @Router /api/communicate [post]
func (h *ClarityHandler) HandleCommunicate(w http.ResponseWriter, r *http.Request) {
	data, err := ReadJSONBody(r, h.maxBodyBytes)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	req, err := clarity.ParseCommunicateRequest(data)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Communicate(r.Context(), req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
