package clarity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 🧾 结构化结果（按 problem_type 区分的联合类型）
// =============================================================================

// Result is one of DecisionResult, PlanResult, OverwhelmResult or
// MessagePrepResult. Only values that passed schema validation are returned.
type Result interface {
	ProblemType() Mode
	isResult()
}

// Common 四种结果共有的字段
type Common struct {
	Type             Mode   `json:"problem_type"`
	CoreIssue        string `json:"core_issue"`
	OneSharpQuestion string `json:"one_sharp_question"`
}

// ProblemType 返回结果的判别字段
func (c Common) ProblemType() Mode { return c.Type }

func (Common) isResult() {}

// Option 决策模式下的一个候选方案
type Option struct {
	Option     string `json:"option"`
	Why        string `json:"why"`
	WhenItWins string `json:"when_it_wins"`
}

// DecisionResult problem_type = decision
type DecisionResult struct {
	Common
	Options         []Option `json:"options"`
	DecisionLevers  []string `json:"decision_levers"`
	Tradeoffs       []string `json:"tradeoffs"`
	NextSteps14Days []string `json:"next_steps_14_days"`
}

// PlanResult problem_type = plan
type PlanResult struct {
	Common
	HiddenAssumptions []string `json:"hidden_assumptions"`
	NextSteps14Days   []string `json:"next_steps_14_days"`
	Tradeoffs         []string `json:"tradeoffs"`
	DecisionLevers    []string `json:"decision_levers"`
}

// OverwhelmResult problem_type = overwhelm
type OverwhelmResult struct {
	Common
	Top3PrioritiesToday  []string `json:"top_3_priorities_today"`
	Top3DeferOrIgnore    []string `json:"top_3_defer_or_ignore"`
	Next10Minutes        string   `json:"next_10_minutes"`
	Next24Hours          string   `json:"next_24_hours"`
	ConstraintOrBoundary string   `json:"constraint_or_boundary"`
}

// Outline 消息准备的结构大纲
type Outline struct {
	Opening string   `json:"opening"`
	Body    []string `json:"body"`
	Close   string   `json:"close"`
}

// MessagePrepResult problem_type = message_prep
type MessagePrepResult struct {
	Common
	PurposeOutcome              string   `json:"purpose_outcome"`
	KeyPoints                   []string `json:"key_points"`
	StructureOutline            Outline  `json:"structure_outline"`
	LikelyQuestionsOrObjections []string `json:"likely_questions_or_objections"`
	RehearsalChecklist          []string `json:"rehearsal_checklist"`
}

// DecodeResult decodes validated JSON into the variant named by problem_type.
func DecodeResult(data []byte) (Result, error) {
	var head struct {
		Type Mode `json:"problem_type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	var out Result
	var err error
	switch head.Type {
	case ModeDecision:
		var r DecisionResult
		err = json.Unmarshal(data, &r)
		out = &r
	case ModePlan:
		var r PlanResult
		err = json.Unmarshal(data, &r)
		out = &r
	case ModeOverwhelm:
		var r OverwhelmResult
		err = json.Unmarshal(data, &r)
		out = &r
	case ModeMessagePrep:
		var r MessagePrepResult
		err = json.Unmarshal(data, &r)
		out = &r
	default:
		return nil, fmt.Errorf("decode result: unknown problem_type %q", head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}

// =============================================================================
// 🖨️ 渲染
// =============================================================================

// Section 一个带标题的展示块
type Section struct {
	Title string
	Items []string
}

// Sections flattens a result into titled blocks for terminal output.
func Sections(r Result) []Section {
	var out []Section
	add := func(title string, items ...string) {
		if len(items) > 0 {
			out = append(out, Section{Title: title, Items: items})
		}
	}

	switch v := r.(type) {
	case *DecisionResult:
		add("Core issue", v.CoreIssue)
		opts := make([]string, 0, len(v.Options))
		for _, o := range v.Options {
			opts = append(opts, fmt.Sprintf("%s: %s (wins when %s)", o.Option, o.Why, o.WhenItWins))
		}
		add("Options", opts...)
		add("Decision levers", v.DecisionLevers...)
		add("Tradeoffs", v.Tradeoffs...)
		add("Next experiment", v.NextSteps14Days...)
		add("One sharp question", v.OneSharpQuestion)
	case *PlanResult:
		add("Goal", v.CoreIssue)
		add("Milestones", v.HiddenAssumptions...)
		add("Next 14 days", v.NextSteps14Days...)
		add("Risks", v.Tradeoffs...)
		add("Success metrics", v.DecisionLevers...)
		add("One sharp question", v.OneSharpQuestion)
	case *OverwhelmResult:
		add("Core issue", v.CoreIssue)
		add("Top 3 today", v.Top3PrioritiesToday...)
		add("Defer or ignore", v.Top3DeferOrIgnore...)
		add("Next 10 minutes", v.Next10Minutes)
		add("Next 24 hours", v.Next24Hours)
		add("Boundary", v.ConstraintOrBoundary)
		add("One sharp question", v.OneSharpQuestion)
	case *MessagePrepResult:
		add("Context", v.CoreIssue)
		add("Purpose", v.PurposeOutcome)
		add("Key points", v.KeyPoints...)
		outline := append([]string{"Opening: " + v.StructureOutline.Opening}, v.StructureOutline.Body...)
		outline = append(outline, "Close: "+v.StructureOutline.Close)
		add("Structure", outline...)
		add("Likely questions", v.LikelyQuestionsOrObjections...)
		add("Rehearsal checklist", v.RehearsalChecklist...)
		add("One sharp question", v.OneSharpQuestion)
	}
	return out
}

// =============================================================================
// ✉️ Communicate 结果
// =============================================================================

// Draft 单个语境下的改写稿
type Draft struct {
	Context    Context  `json:"context"`
	Intent     Intent   `json:"intent"`
	Draft      string   `json:"draft"`
	KeyChanges []string `json:"key_changes"`
	Tone       string   `json:"tone"`
}

// CommunicateResult 是 POST /api/communicate 的响应体
type CommunicateResult struct {
	Drafts           []Draft `json:"drafts"`
	RefiningQuestion string  `json:"refining_question"`
}

// DecodeCommunicateResult 解码已校验的 JSON
func DecodeCommunicateResult(data []byte) (*CommunicateResult, error) {
	var out CommunicateResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode communicate result: %w", err)
	}
	return &out, nil
}

// Render 终端展示
func (r *CommunicateResult) Render() string {
	var b strings.Builder
	for i, d := range r.Drafts {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s | %s | %s]\n%s\n", d.Context, d.Intent, d.Tone, d.Draft)
		for _, c := range d.KeyChanges {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
	}
	if r.RefiningQuestion != "" {
		fmt.Fprintf(&b, "\nRefining question: %s\n", r.RefiningQuestion)
	}
	return b.String()
}

// decodeFailure 校验已通过但解码失败，按 AI_ERROR 上报
func decodeFailure(label string, err error) error {
	return types.NewAIError("AI output could not be decoded").
		WithCause(fmt.Errorf("%s: %w", label, err))
}
