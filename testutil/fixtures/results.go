// =============================================================================
// 📦 测试数据工厂 - 结构化结果
// =============================================================================
// 每种模式一份能通过结果 schema 校验的 LLM 输出，以及常见的畸形输出
// =============================================================================
package fixtures

import "fmt"

// =============================================================================
// 🎯 Clarify 输出
// =============================================================================

// DecisionJSON 合法的 decision 结果
const DecisionJSON = `{
  "problem_type": "decision",
  "core_issue": "Choosing between a stable job offer and staying to finish the product launch.",
  "options": [
    {"option": "Take the offer", "why": "Higher pay and growth", "when_it_wins": "If the launch slips past Q3"},
    {"option": "Stay through launch", "why": "Ownership of a visible result", "when_it_wins": "If equity vests within six months"}
  ],
  "decision_levers": ["Launch date certainty", "Offer deadline flexibility"],
  "tradeoffs": ["Short-term income vs long-term credibility"],
  "next_steps_14_days": ["Ask the new employer for a two-week extension this week"],
  "one_sharp_question": "Which regret would be harder to explain in a year?"
}`

// PlanJSON 合法的 plan 结果
const PlanJSON = `{
  "problem_type": "plan",
  "core_issue": "Ship the beta to 20 customers by month end.",
  "hidden_assumptions": ["Auth is done", "Billing is stubbed", "Support inbox exists"],
  "next_steps_14_days": ["Freeze scope", "Write onboarding doc", "Recruit testers", "Set up feedback form", "Run dry run"],
  "tradeoffs": ["Speed vs polish", "Coverage vs depth"],
  "decision_levers": ["Weekly active testers"],
  "one_sharp_question": "What would make you delay the beta?"
}`

// OverwhelmJSON 合法的 overwhelm 结果
const OverwhelmJSON = `{
  "problem_type": "overwhelm",
  "core_issue": "Too many open commitments with no ranking.",
  "top_3_priorities_today": ["Send invoice", "Reply to landlord", "Book dentist"],
  "top_3_defer_or_ignore": ["Inbox zero", "Closet cleanup", "Newsletter draft"],
  "next_10_minutes": "Write the invoice email.",
  "next_24_hours": "Clear the three priorities.",
  "constraint_or_boundary": "If you do only one thing, send the invoice.",
  "one_sharp_question": "What happens if the newsletter waits a week?"
}`

// MessagePrepJSON 合法的 message_prep 结果
const MessagePrepJSON = `{
  "problem_type": "message_prep",
  "core_issue": "Asking the team to adopt a new review process.",
  "purpose_outcome": "Agreement to trial the process for two sprints.",
  "key_points": ["Reviews are slow", "Smaller PRs help", "Trial is reversible"],
  "structure_outline": {"opening": "Share the review delay data", "body": ["Proposal", "Trial terms"], "close": "Ask for a yes to the trial"},
  "likely_questions_or_objections": ["Who enforces it?", "What about hotfixes?", "Will it slow us down?"],
  "rehearsal_checklist": ["Numbers checked", "Slides under five", "Owner named"],
  "one_sharp_question": "What would make this trial a clear success?"
}`

// OverwhelmTwoPrioritiesJSON 违反 exactly-3 约束的 overwhelm 输出
const OverwhelmTwoPrioritiesJSON = `{
  "problem_type": "overwhelm",
  "core_issue": "Too many open commitments with no ranking.",
  "top_3_priorities_today": ["Send invoice", "Reply to landlord"],
  "top_3_defer_or_ignore": ["Inbox zero", "Closet cleanup", "Newsletter draft"],
  "next_10_minutes": "Write the invoice email.",
  "next_24_hours": "Clear the priorities.",
  "constraint_or_boundary": "If you do only one thing, send the invoice.",
  "one_sharp_question": "What happens if the newsletter waits a week?"
}`

// =============================================================================
// ✉️ Communicate 输出
// =============================================================================

// CommunicateJSON builds a valid communicate output with one draft per
// context, plus a combined draft when withCombined is set.
func CommunicateJSON(intent string, withCombined bool, contexts ...string) string {
	if withCombined {
		contexts = append(contexts, "combined")
	}
	drafts := ""
	for i, c := range contexts {
		if i > 0 {
			drafts += ","
		}
		drafts += fmt.Sprintf(`{"context":%q,"intent":%q,"draft":"Rewritten for %s","key_changes":["Shorter opening","Clear ask"],"tone":"direct"}`, c, intent, c)
	}
	return fmt.Sprintf(`{"drafts":[%s],"refining_question":"Who is the audience?"}`, drafts)
}

// =============================================================================
// 💥 畸形输出
// =============================================================================

// 常见的不可用输出
const (
	NotJSON       = "I'm sorry, I can't help with that."
	TruncatedJSON = `{"problem_type": "decision", "core_issue": "cut off`
)

// Fenced 用 markdown 代码块包裹
func Fenced(body string) string {
	return "Here you go:\n```json\n" + body + "\n```\n"
}
