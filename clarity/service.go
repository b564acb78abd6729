package clarity

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/agent/structured"
	"github.com/BaSui01/claritycast/types"
)

// Generator runs one structured generation. *structured.Pipeline satisfies it.
type Generator interface {
	Generate(ctx context.Context, req structured.GenerateRequest) (*structured.Generation, error)
}

// Service turns validated requests into validated results.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// NewService 创建领域服务
func NewService(gen Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gen: gen, logger: logger.With(zap.String("component", "clarity"))}
}

// Clarify validates the request, generates and decodes the mode's result.
func (s *Service) Clarify(ctx context.Context, req ClarifyRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	schema, err := ResultSchema(req.Mode)
	if err != nil {
		return nil, types.NewInvalidInput(err.Error(), types.Issue{Path: "mode", Message: err.Error()})
	}

	label := req.Label()
	gen, err := s.gen.Generate(ctx, structured.GenerateRequest{
		SystemPrompt: ClarifySystemPrompt,
		UserPrompt:   ClarifyPrompt(req),
		Schema:       schema,
		Label:        label,
		Repair:       ClarifyRepair(req.Mode),
	})
	if err != nil {
		return nil, err
	}

	result, err := DecodeResult(gen.Data)
	if err != nil {
		return nil, decodeFailure(label, err)
	}
	if result.ProblemType() != req.Mode {
		return nil, types.NewAIError("AI output has the wrong problem_type")
	}

	s.logger.Debug("clarify completed",
		zap.String("mode", string(req.Mode)),
		zap.Int("attempts", len(gen.Attempts)),
		zap.Bool("refinement", req.IsRefinement()))
	return result, nil
}

// Communicate validates the request, generates and decodes the drafts.
func (s *Service) Communicate(ctx context.Context, req CommunicateRequest) (*CommunicateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	label := req.Label()
	gen, err := s.gen.Generate(ctx, structured.GenerateRequest{
		SystemPrompt: CommunicateSystemPrompt,
		UserPrompt:   CommunicatePrompt(req),
		Schema:       CommunicateSchema(req),
		Label:        label,
		Repair:       CommunicateRepair(req),
	})
	if err != nil {
		return nil, err
	}

	result, err := DecodeCommunicateResult(gen.Data)
	if err != nil {
		return nil, decodeFailure(label, err)
	}

	s.logger.Debug("communicate completed",
		zap.Int("contexts", len(req.Contexts)),
		zap.Int("drafts", len(result.Drafts)),
		zap.Int("attempts", len(gen.Attempts)))
	return result, nil
}
