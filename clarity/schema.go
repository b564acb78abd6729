package clarity

import (
	"fmt"

	"github.com/BaSui01/claritycast/agent/structured"
)

// =============================================================================
// 📐 结果 schema
// =============================================================================

// 各模式的数组长度约束
const (
	decisionOptionsMin = 2
	decisionOptionsMax = 3
	listItemsMin       = 3
	listItemsMax       = 6
	keyChangesMin      = 2
	keyChangesMax      = 5
)

// ResultSchema returns the strict schema for one mode's result.
func ResultSchema(mode Mode) (*structured.JSONSchema, error) {
	s := baseResult(mode)
	switch mode {
	case ModeDecision:
		option := strictObject().
			AddRequiredProperty("option", structured.NewTextSchema()).
			AddRequiredProperty("why", structured.NewTextSchema()).
			AddRequiredProperty("when_it_wins", structured.NewTextSchema())
		s.AddRequiredProperty("options", structured.NewArraySchema(option).
			WithMinItems(decisionOptionsMin).
			WithMaxItems(decisionOptionsMax)).
			AddRequiredProperty("decision_levers", structured.NewTextListSchema(1, 3)).
			AddRequiredProperty("tradeoffs", structured.NewTextListSchema(1, 3)).
			AddRequiredProperty("next_steps_14_days", structured.NewTextListSchema(1, 1))
	case ModePlan:
		s.AddRequiredProperty("hidden_assumptions", structured.NewTextListSchema(3, 5)).
			AddRequiredProperty("next_steps_14_days", structured.NewTextListSchema(5, 10)).
			AddRequiredProperty("tradeoffs", structured.NewTextListSchema(2, 4)).
			AddRequiredProperty("decision_levers", structured.NewTextListSchema(1, 2))
	case ModeOverwhelm:
		s.AddRequiredProperty("top_3_priorities_today", structured.NewTextListSchema(3, 3)).
			AddRequiredProperty("top_3_defer_or_ignore", structured.NewTextListSchema(3, 3)).
			AddRequiredProperty("next_10_minutes", structured.NewTextSchema()).
			AddRequiredProperty("next_24_hours", structured.NewTextSchema()).
			AddRequiredProperty("constraint_or_boundary", structured.NewTextSchema())
	case ModeMessagePrep:
		outline := strictObject().
			AddRequiredProperty("opening", structured.NewTextSchema()).
			AddRequiredProperty("body", structured.NewTextListSchema(2, 4)).
			AddRequiredProperty("close", structured.NewTextSchema())
		s.AddRequiredProperty("purpose_outcome", structured.NewTextSchema()).
			AddRequiredProperty("key_points", structured.NewTextListSchema(listItemsMin, listItemsMax)).
			AddRequiredProperty("structure_outline", outline).
			AddRequiredProperty("likely_questions_or_objections", structured.NewTextListSchema(listItemsMin, listItemsMax)).
			AddRequiredProperty("rehearsal_checklist", structured.NewTextListSchema(listItemsMin, listItemsMax))
	default:
		return nil, fmt.Errorf("no result schema for mode %q", mode)
	}
	return s, nil
}

func baseResult(mode Mode) *structured.JSONSchema {
	return strictObject().
		WithTitle(string(mode)+"_result").
		AddRequiredProperty("problem_type", structured.NewEnumSchema(string(mode)).WithConst(string(mode))).
		AddRequiredProperty("core_issue", structured.NewTextSchema()).
		AddRequiredProperty("one_sharp_question", structured.NewTextSchema())
}

func strictObject() *structured.JSONSchema {
	return structured.NewObjectSchema().WithAdditionalProperties(false)
}

// CommunicateSchema builds the draft schema for one request: one draft per
// selected context plus a combined draft when more than one is selected.
func CommunicateSchema(req CommunicateRequest) *structured.JSONSchema {
	allowed := make([]string, 0, len(req.Contexts)+1)
	for _, c := range req.Contexts {
		allowed = append(allowed, string(c))
	}
	if req.Combined() {
		allowed = append(allowed, string(ContextCombined))
	}

	draft := strictObject().
		AddRequiredProperty("context", structured.NewEnumSchema(allowed...)).
		AddRequiredProperty("intent", structured.NewEnumSchema(string(req.Intent)).WithConst(string(req.Intent))).
		AddRequiredProperty("draft", structured.NewTextSchema()).
		AddRequiredProperty("key_changes", structured.NewTextListSchema(keyChangesMin, keyChangesMax)).
		AddRequiredProperty("tone", structured.NewTextSchema())

	drafts := structured.NewArraySchema(draft).WithMinItems(max(req.ExpectedDrafts(), 1))

	return strictObject().
		WithTitle("communicate_result").
		AddRequiredProperty("drafts", drafts).
		AddRequiredProperty("refining_question", structured.NewTextSchema())
}
