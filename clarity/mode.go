package clarity

import (
	"fmt"
	"strings"
)

// =============================================================================
// 🧭 枚举：模式 / 语境 / 意图
// =============================================================================

// Mode 选择 Clarify 的结果形态，同时作为结果的 problem_type
type Mode string

const (
	ModeDecision    Mode = "decision"
	ModePlan        Mode = "plan"
	ModeOverwhelm   Mode = "overwhelm"
	ModeMessagePrep Mode = "message_prep"
)

// Modes 全部模式，顺序即展示顺序
var Modes = []Mode{ModeDecision, ModePlan, ModeOverwhelm, ModeMessagePrep}

// Valid reports whether m is one of Modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeDecision, ModePlan, ModeOverwhelm, ModeMessagePrep:
		return true
	}
	return false
}

// Label is the human form used inside prompts ("message prep").
func (m Mode) Label() string {
	return strings.Replace(string(m), "_", " ", 1)
}

// ParseMode 解析模式名，大小写不敏感
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q (want one of %s)", s, joinValues(Modes))
	}
	return m, nil
}

// Context 是 Communicate 草稿面向的语境
type Context string

const (
	ContextEvaluative Context = "evaluative"
	ContextTechnical  Context = "technical"
	ContextPersuasive Context = "persuasive"
	ContextPersonal   Context = "personal"

	// ContextCombined 标记融合多个语境的草稿，不能出现在请求中
	ContextCombined Context = "combined"
)

// Contexts 请求中允许的语境
var Contexts = []Context{ContextEvaluative, ContextTechnical, ContextPersuasive, ContextPersonal}

// Valid reports whether c may appear in a request.
func (c Context) Valid() bool {
	switch c {
	case ContextEvaluative, ContextTechnical, ContextPersuasive, ContextPersonal:
		return true
	}
	return false
}

// ParseContexts 解析逗号分隔的语境列表
func ParseContexts(s string) ([]Context, error) {
	var out []Context
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		c := Context(part)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown context %q (want one of %s)", part, joinValues(Contexts))
		}
		out = append(out, c)
	}
	return out, nil
}

// Intent 是消息的目的
type Intent string

const (
	IntentInform    Intent = "inform"
	IntentPersuade  Intent = "persuade"
	IntentExplain   Intent = "explain"
	IntentApologise Intent = "apologise"
)

// Intents 全部意图
var Intents = []Intent{IntentInform, IntentPersuade, IntentExplain, IntentApologise}

// Valid reports whether i is one of Intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentInform, IntentPersuade, IntentExplain, IntentApologise:
		return true
	}
	return false
}

// ParseIntent 解析意图名
func ParseIntent(s string) (Intent, error) {
	i := Intent(strings.ToLower(strings.TrimSpace(s)))
	if !i.Valid() {
		return "", fmt.Errorf("unknown intent %q (want one of %s)", s, joinValues(Intents))
	}
	return i, nil
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

func enumValues[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
