package clarity

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/BaSui01/claritycast/agent/structured"
	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 📨 请求
// =============================================================================

// MaxContexts 一次 Communicate 最多选择的语境数
const MaxContexts = 4

// ClarifyRequest 是 POST /api/clarify 的请求体
type ClarifyRequest struct {
	Mode           Mode   `json:"mode"`
	Text           string `json:"text"`
	FollowupAnswer string `json:"followup_answer,omitempty"`
}

// IsRefinement reports whether this is a follow-up that must bypass the cache.
func (r ClarifyRequest) IsRefinement() bool {
	return strings.TrimSpace(r.FollowupAnswer) != ""
}

// CacheKey 返回参与指纹计算的字段，不含追问答案
func (r ClarifyRequest) CacheKey() any {
	return map[string]any{
		"mode": r.Mode,
		"text": r.Text,
	}
}

// Validate 按请求 schema 校验，失败返回 INVALID_INPUT
func (r ClarifyRequest) Validate() error {
	return validateRequest(r, ClarifyRequestSchema())
}

// Label 用于日志与指标
func (r ClarifyRequest) Label() string {
	return "clarify:" + string(r.Mode)
}

// Options 控制 Communicate 改写风格
type Options struct {
	PreserveMeaning bool `json:"preserveMeaning"`
	Concise         bool `json:"concise"`
	Formal          bool `json:"formal"`
}

// CommunicateRequest 是 POST /api/communicate 的请求体
type CommunicateRequest struct {
	Message        string    `json:"message"`
	Contexts       []Context `json:"contexts"`
	Intent         Intent    `json:"intent"`
	Options        Options   `json:"options"`
	RefiningAnswer string    `json:"refiningAnswer,omitempty"`
}

// IsRefinement reports whether this is a refinement that must bypass the cache.
func (r CommunicateRequest) IsRefinement() bool {
	return strings.TrimSpace(r.RefiningAnswer) != ""
}

// CacheKey 返回参与指纹计算的字段，不含 refiningAnswer
func (r CommunicateRequest) CacheKey() any {
	return map[string]any{
		"message":  r.Message,
		"contexts": r.Contexts,
		"intent":   r.Intent,
		"options":  r.Options,
	}
}

// Combined reports whether a blended "combined" draft is expected.
func (r CommunicateRequest) Combined() bool {
	return len(r.Contexts) > 1
}

// ExpectedDrafts 期望的草稿数量
func (r CommunicateRequest) ExpectedDrafts() int {
	if r.Combined() {
		return len(r.Contexts) + 1
	}
	return len(r.Contexts)
}

// Validate 按请求 schema 校验，失败返回 INVALID_INPUT
func (r CommunicateRequest) Validate() error {
	return validateRequest(r, CommunicateRequestSchema())
}

// Label 用于日志与指标
func (r CommunicateRequest) Label() string {
	return "communicate"
}

// =============================================================================
// 📐 请求 schema
// =============================================================================

// ClarifyRequestSchema 描述 ClarifyRequest
func ClarifyRequestSchema() *structured.JSONSchema {
	return structured.NewObjectSchema().
		WithTitle("ClarifyRequest").
		AddRequiredProperty("mode", structured.NewEnumSchema(enumValues(Modes)...)).
		AddRequiredProperty("text", structured.NewTextSchema()).
		AddProperty("followup_answer", structured.NewStringSchema())
}

// CommunicateRequestSchema 描述 CommunicateRequest
func CommunicateRequestSchema() *structured.JSONSchema {
	options := structured.NewObjectSchema().
		AddRequiredProperty("preserveMeaning", structured.NewBooleanSchema()).
		AddRequiredProperty("concise", structured.NewBooleanSchema()).
		AddRequiredProperty("formal", structured.NewBooleanSchema())

	contexts := structured.NewArraySchema(structured.NewEnumSchema(enumValues(Contexts)...)).
		WithMinItems(1).
		WithMaxItems(MaxContexts).
		WithUniqueItems(true)

	return structured.NewObjectSchema().
		WithTitle("CommunicateRequest").
		AddRequiredProperty("message", structured.NewTextSchema()).
		AddRequiredProperty("contexts", contexts).
		AddRequiredProperty("intent", structured.NewEnumSchema(enumValues(Intents)...)).
		AddRequiredProperty("options", options).
		AddProperty("refiningAnswer", structured.NewStringSchema())
}

// =============================================================================
// 🔍 解析与校验
// =============================================================================

var requestValidator = structured.NewValidator()

// ParseClarifyRequest 校验原始 JSON 后解码
func ParseClarifyRequest(data []byte) (ClarifyRequest, error) {
	var req ClarifyRequest
	if err := parseRequest(data, ClarifyRequestSchema(), &req); err != nil {
		return ClarifyRequest{}, err
	}
	return req, nil
}

// ParseCommunicateRequest 校验原始 JSON 后解码
func ParseCommunicateRequest(data []byte) (CommunicateRequest, error) {
	var req CommunicateRequest
	if err := parseRequest(data, CommunicateRequestSchema(), &req); err != nil {
		return CommunicateRequest{}, err
	}
	return req, nil
}

func parseRequest(data []byte, schema *structured.JSONSchema, out any) error {
	if err := requestValidator.Validate(data, schema); err != nil {
		return invalidInput(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return types.NewInvalidInput("request body is not valid JSON").WithCause(err)
	}
	return nil
}

func validateRequest(req any, schema *structured.JSONSchema) error {
	data, err := json.Marshal(req)
	if err != nil {
		return types.NewInvalidInput("request could not be encoded").WithCause(err)
	}
	if err := requestValidator.Validate(data, schema); err != nil {
		return invalidInput(err)
	}
	return nil
}

func invalidInput(err error) error {
	var verrs *structured.ValidationErrors
	if errors.As(err, &verrs) {
		return types.NewInvalidInput("invalid request", verrs.Issues()...)
	}
	return types.NewInvalidInput("invalid request").WithCause(err)
}
