package clarity

import (
	"fmt"
	"strings"

	"github.com/BaSui01/claritycast/agent/structured"
)

// ClarifyRepair returns a repair builder that restates the mode's arity rules.
func ClarifyRepair(mode Mode) structured.RepairPromptBuilder {
	reminder := fmt.Sprintf("problem_type must be %q. %s", mode, modeReminders[mode])
	return func(original string, issues []structured.ParseError) string {
		return repairPrompt(original, issues, reminder)
	}
}

// CommunicateRepair returns a repair builder that restates the draft count.
func CommunicateRepair(req CommunicateRequest) structured.RepairPromptBuilder {
	names := make([]string, len(req.Contexts))
	for i, c := range req.Contexts {
		names[i] = string(c)
	}
	reminder := fmt.Sprintf("Return exactly %d drafts for contexts [%s]", req.ExpectedDrafts(), strings.Join(names, ", "))
	if req.Combined() {
		reminder += ` plus one "combined" draft`
	}
	reminder += fmt.Sprintf(`; every draft intent is %q and key_changes has 2-5 items.`, req.Intent)
	return func(original string, issues []structured.ParseError) string {
		return repairPrompt(original, issues, reminder)
	}
}

var modeReminders = map[Mode]string{
	ModeDecision:    "options has 2-3 items, decision_levers 1-3, tradeoffs 1-3, next_steps_14_days exactly 1.",
	ModePlan:        "hidden_assumptions has 3-5 items, next_steps_14_days 5-10, tradeoffs 2-4, decision_levers 1-2.",
	ModeOverwhelm:   "top_3_priorities_today and top_3_defer_or_ignore have exactly 3 items each.",
	ModeMessagePrep: "key_points, likely_questions_or_objections and rehearsal_checklist have 3-6 items; structure_outline.body has 2-4.",
}

func repairPrompt(original string, issues []structured.ParseError, reminder string) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nIMPORTANT: Your previous output was invalid. Fix these problems:\n")
	b.WriteString(structured.FormatIssues(issues))
	b.WriteString(reminder)
	b.WriteString("\nRewrite only the JSON, no extra keys, no markdown.")
	return b.String()
}
