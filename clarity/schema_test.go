package clarity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/claritycast/agent/structured"
	"github.com/BaSui01/claritycast/testutil/fixtures"
)

func mustSchema(t *testing.T, mode Mode) *structured.JSONSchema {
	t.Helper()
	s, err := ResultSchema(mode)
	require.NoError(t, err)
	return s
}

func TestResultSchema_AcceptsFixtures(t *testing.T) {
	v := structured.NewValidator()
	cases := map[Mode]string{
		ModeDecision:    fixtures.DecisionJSON,
		ModePlan:        fixtures.PlanJSON,
		ModeOverwhelm:   fixtures.OverwhelmJSON,
		ModeMessagePrep: fixtures.MessagePrepJSON,
	}
	for mode, body := range cases {
		t.Run(string(mode), func(t *testing.T) {
			assert.NoError(t, v.Validate([]byte(body), mustSchema(t, mode)))
		})
	}
}

func TestResultSchema_UnknownMode(t *testing.T) {
	_, err := ResultSchema("nope")
	assert.Error(t, err)
}

func TestResultSchema_RejectsWrongVariant(t *testing.T) {
	v := structured.NewValidator()
	err := v.Validate([]byte(fixtures.PlanJSON), mustSchema(t, ModeDecision))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "problem_type")
}

func TestResultSchema_RejectsExtraFields(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(fixtures.OverwhelmJSON), &m))
	m["mood"] = "calm"
	data, _ := json.Marshal(m)

	err := structured.NewValidator().Validate(data, mustSchema(t, ModeOverwhelm))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mood")
}

func TestResultSchema_OverwhelmArity(t *testing.T) {
	schema := mustSchema(t, ModeOverwhelm)
	v := structured.NewValidator()

	err := v.Validate([]byte(fixtures.OverwhelmTwoPrioritiesJSON), schema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_3_priorities_today")

	rapid.Check(t, func(rt *rapid.T) {
		priorities := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 6).Draw(rt, "priorities")
		defers := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 0, 6).Draw(rt, "defers")

		var m map[string]any
		if err := json.Unmarshal([]byte(fixtures.OverwhelmJSON), &m); err != nil {
			rt.Fatal(err)
		}
		m["top_3_priorities_today"] = priorities
		m["top_3_defer_or_ignore"] = defers
		data, _ := json.Marshal(m)

		err := v.Validate(data, schema)
		if len(priorities) == 3 && len(defers) == 3 {
			if err != nil {
				rt.Fatalf("3+3 rejected: %v", err)
			}
		} else if err == nil {
			rt.Fatalf("%d+%d accepted", len(priorities), len(defers))
		}
	})
}

func TestResultSchema_DecisionOptionsArity(t *testing.T) {
	schema := mustSchema(t, ModeDecision)
	v := structured.NewValidator()
	opt := map[string]any{"option": "a", "why": "b", "when_it_wins": "c"}

	for n := 0; n <= 4; n++ {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(fixtures.DecisionJSON), &m))
		opts := make([]any, n)
		for i := range opts {
			opts[i] = opt
		}
		m["options"] = opts
		data, _ := json.Marshal(m)

		err := v.Validate(data, schema)
		if n == 2 || n == 3 {
			assert.NoError(t, err, "n=%d", n)
		} else {
			assert.Error(t, err, "n=%d", n)
		}
	}
}

func TestCommunicateSchema(t *testing.T) {
	v := structured.NewValidator()

	single := CommunicateRequest{Contexts: []Context{ContextTechnical}, Intent: IntentInform}
	assert.NoError(t, v.Validate([]byte(fixtures.CommunicateJSON("inform", false, "technical")), CommunicateSchema(single)))
	assert.Error(t, v.Validate([]byte(fixtures.CommunicateJSON("inform", true, "technical")), CommunicateSchema(single)),
		"combined draft is not allowed for a single context")
	assert.Error(t, v.Validate([]byte(fixtures.CommunicateJSON("persuade", false, "technical")), CommunicateSchema(single)),
		"intent is pinned")

	multi := CommunicateRequest{Contexts: []Context{ContextTechnical, ContextPersonal}, Intent: IntentExplain}
	assert.NoError(t, v.Validate([]byte(fixtures.CommunicateJSON("explain", true, "technical", "personal")), CommunicateSchema(multi)))
	assert.Error(t, v.Validate([]byte(fixtures.CommunicateJSON("explain", false, "technical", "personal")), CommunicateSchema(multi)),
		"missing combined draft leaves too few drafts")
	assert.Error(t, v.Validate([]byte(fixtures.CommunicateJSON("explain", false, "technical", "evaluative", "personal")), CommunicateSchema(multi)),
		"unselected context")
}
