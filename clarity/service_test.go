package clarity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/claritycast/agent/structured"
	"github.com/BaSui01/claritycast/testutil"
	"github.com/BaSui01/claritycast/testutil/fixtures"
	"github.com/BaSui01/claritycast/testutil/mocks"
	"github.com/BaSui01/claritycast/types"
)

func newTestService(t *testing.T, provider *mocks.MockProvider) *Service {
	t.Helper()
	logger := zaptest.NewLogger(t)
	return NewService(structured.NewPipeline(provider, structured.WithLogger(logger)), logger)
}

func TestService_ClarifyDecision(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(fixtures.Fenced(fixtures.DecisionJSON))
	svc := newTestService(t, provider)

	res, err := svc.Clarify(testutil.TestContext(t), ClarifyRequest{Mode: ModeDecision, Text: "offer or stay?"})
	require.NoError(t, err)

	d, ok := res.(*DecisionResult)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(d.Options), 2)
	assert.LessOrEqual(t, len(d.Options), 3)
	assert.NotEmpty(t, d.OneSharpQuestion)
	assert.Equal(t, 1, provider.CallCount())

	prompts := provider.UserPrompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Mode: decision")
}

func TestService_ClarifyRepairsOnce(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(fixtures.OverwhelmTwoPrioritiesJSON, fixtures.OverwhelmJSON)
	svc := newTestService(t, provider)

	res, err := svc.Clarify(testutil.TestContext(t), ClarifyRequest{Mode: ModeOverwhelm, Text: "everything at once"})
	require.NoError(t, err)
	assert.Equal(t, ModeOverwhelm, res.ProblemType())
	assert.Equal(t, 2, provider.CallCount())

	prompts := provider.UserPrompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[1], "IMPORTANT: Your previous output was invalid.")
	assert.Contains(t, prompts[1], "top_3_priorities_today")
}

func TestService_ClarifyFailsAfterRepair(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(fixtures.NotJSON, fixtures.TruncatedJSON)
	svc := newTestService(t, provider)

	_, err := svc.Clarify(testutil.TestContext(t), ClarifyRequest{Mode: ModeDecision, Text: "x"})
	te := testutil.AssertErrorType(t, err, types.ErrAI)
	assert.Equal(t, 500, te.HTTPStatus)
	assert.Equal(t, 2, provider.CallCount())
}

func TestService_ClarifyInvalidInputSkipsProvider(t *testing.T) {
	provider := mocks.NewMockProvider()
	svc := newTestService(t, provider)

	_, err := svc.Clarify(context.Background(), ClarifyRequest{Mode: ModePlan, Text: " "})
	testutil.AssertErrorType(t, err, types.ErrInvalidInput)
	assert.Zero(t, provider.CallCount())
}

func TestService_Communicate(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponses(fixtures.CommunicateJSON("inform", true, "evaluative", "technical"))
	svc := newTestService(t, provider)

	res, err := svc.Communicate(testutil.TestContext(t), CommunicateRequest{
		Message:  "Q3 numbers are in",
		Contexts: []Context{ContextEvaluative, ContextTechnical},
		Intent:   IntentInform,
		Options:  Options{Concise: true},
	})
	require.NoError(t, err)
	require.Len(t, res.Drafts, 3)
	assert.Equal(t, ContextCombined, res.Drafts[2].Context)
	assert.Equal(t, "Who is the audience?", res.RefiningQuestion)
}

func TestService_CommunicateRejectsDuplicateContexts(t *testing.T) {
	provider := mocks.NewMockProvider()
	svc := newTestService(t, provider)

	_, err := svc.Communicate(context.Background(), CommunicateRequest{
		Message:  "x",
		Contexts: []Context{ContextPersonal, ContextPersonal},
		Intent:   IntentInform,
	})
	testutil.AssertErrorType(t, err, types.ErrInvalidInput)
	assert.Zero(t, provider.CallCount())
}
