package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/claritycast/llm"
	"github.com/BaSui01/claritycast/types"
)

const (
	// MaxRepairAttempts 校验失败后最多追加的修复调用次数
	MaxRepairAttempts = 1

	// DefaultCallTimeout 单次 LLM 调用的上限
	DefaultCallTimeout = 50 * time.Second

	rawPreviewRunes = 500
	tracerName      = "github.com/BaSui01/claritycast/agent/structured"
)

// Attempt outcomes, used as the "outcome" metric label.
const (
	OutcomeSuccess       = "success"
	OutcomeEmpty         = "empty"
	OutcomeNoJSON        = "no_json"
	OutcomeInvalid       = "invalid"
	OutcomeProviderError = "provider_error"
	OutcomeRateLimited   = "rate_limited"
	OutcomeCanceled      = "canceled"
)

// RepairPromptBuilder builds the user prompt for a repair call from the
// original prompt and the previous attempt's violations.
type RepairPromptBuilder func(original string, issues []ParseError) string

// MetricsRecorder receives one observation per LLM call.
type MetricsRecorder interface {
	RecordGenerationAttempt(label, outcome string, duration time.Duration)
}

// GenerateRequest describes one structured generation.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Schema       *JSONSchema
	Label        string
	Repair       RepairPromptBuilder
}

// Attempt records a single LLM call. Only kept for diagnostics.
type Attempt struct {
	Number      int
	Prompt      string
	Raw         string
	Outcome     string
	ExtractErr  error
	ProviderErr error
	Issues      []ParseError
	Duration    time.Duration
}

// Generation is a validated result.
type Generation struct {
	Data     json.RawMessage
	Attempts []Attempt
}

// GenerationError is the cause attached to the AI_ERROR returned when every
// attempt failed.
type GenerationError struct {
	Label    string
	Attempts []Attempt
}

func (e *GenerationError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("structured generation %q failed", e.Label)
	}
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("structured generation %q failed after %d attempts (last outcome: %s)",
		e.Label, len(e.Attempts), last.Outcome)
}

// Pipeline calls the provider, extracts and validates JSON, and retries with
// a repair prompt when the output does not match the schema.
type Pipeline struct {
	provider          llm.Provider
	validator         *DefaultValidator
	logger            *zap.Logger
	tracer            trace.Tracer
	meter             metric.Meter
	attemptTotal      metric.Int64Counter
	attemptDuration   metric.Float64Histogram
	metrics           MetricsRecorder
	maxRepairAttempts int
	callTimeout       time.Duration
	model             string
	temperature       float32
	maxTokens         int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m MetricsRecorder) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

func WithTracer(t trace.Tracer) PipelineOption {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMeter sets the OpenTelemetry meter for the attempt counter and
// duration histogram. Defaults to the global meter provider.
func WithMeter(m metric.Meter) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.meter = m
		}
	}
}

// WithMaxRepairAttempts overrides MaxRepairAttempts. Negative values are
// treated as zero.
func WithMaxRepairAttempts(n int) PipelineOption {
	return func(p *Pipeline) {
		if n < 0 {
			n = 0
		}
		p.maxRepairAttempts = n
	}
}

func WithCallTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d > 0 {
			p.callTimeout = d
		}
	}
}

// WithModel sets the model name sent on every request. Empty lets the
// provider choose.
func WithModel(model string) PipelineOption {
	return func(p *Pipeline) { p.model = model }
}

func WithTemperature(t float32) PipelineOption {
	return func(p *Pipeline) { p.temperature = t }
}

func WithMaxTokens(n int) PipelineOption {
	return func(p *Pipeline) { p.maxTokens = n }
}

// NewPipeline creates a Pipeline over provider.
func NewPipeline(provider llm.Provider, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		provider:          provider,
		validator:         NewValidator(),
		logger:            zap.NewNop(),
		tracer:            otel.Tracer(tracerName),
		meter:             otel.Meter(tracerName),
		maxRepairAttempts: MaxRepairAttempts,
		callTimeout:       DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(zap.String("component", "structured_pipeline"))
	p.initInstruments()
	return p
}

// initInstruments 创建 OTel 指标；失败时只记日志，不影响生成
func (p *Pipeline) initInstruments() {
	var err error
	p.attemptTotal, err = p.meter.Int64Counter("structured.attempt.total",
		metric.WithDescription("Total number of structured generation attempts"),
		metric.WithUnit("{attempt}"))
	if err != nil {
		p.logger.Warn("attempt counter unavailable", zap.Error(err))
	}
	p.attemptDuration, err = p.meter.Float64Histogram("structured.attempt.duration",
		metric.WithDescription("Structured generation attempt duration"),
		metric.WithUnit("s"))
	if err != nil {
		p.logger.Warn("attempt histogram unavailable", zap.Error(err))
	}
}

// Generate runs the bounded attempt loop. It returns a Generation whose Data
// passed validation, or a *types.Error.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	if req.Schema == nil {
		return nil, fmt.Errorf("structured: schema is required")
	}
	label := req.Label
	if label == "" {
		label = "structured"
	}

	ctx, span := p.tracer.Start(ctx, "structured.generate",
		trace.WithAttributes(attribute.String("generation.label", label)))
	defer span.End()

	schemaHint, err := req.Schema.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("structured: encode schema: %w", err)
	}

	maxAttempts := p.maxRepairAttempts + 1
	prompt := req.UserPrompt
	attempts := make([]Attempt, 0, maxAttempts)

	for n := 1; n <= maxAttempts; n++ {
		att, data, terr := p.attempt(ctx, req, label, prompt, schemaHint, n)
		attempts = append(attempts, att)

		if terr != nil {
			span.RecordError(terr)
			span.SetStatus(codes.Error, att.Outcome)
			return nil, terr
		}
		if data != nil {
			span.SetAttributes(attribute.Int("generation.attempts", n))
			return &Generation{Data: data, Attempts: attempts}, nil
		}

		if n < maxAttempts {
			prompt = p.repairPrompt(req, att)
		}
	}

	genErr := &GenerationError{Label: label, Attempts: attempts}
	span.RecordError(genErr)
	span.SetStatus(codes.Error, "attempts exhausted")

	p.logger.Warn("structured generation failed",
		zap.String("label", label),
		zap.Int("attempts", len(attempts)))

	return nil, exhaustedError(genErr)
}

// attempt performs one LLM call. A non-nil error is terminal; nil data with a
// nil error means the attempt failed and may be repaired.
func (p *Pipeline) attempt(ctx context.Context, req GenerateRequest, label, prompt string, schemaHint []byte, n int) (Attempt, json.RawMessage, error) {
	ctx, span := p.tracer.Start(ctx, "structured.attempt",
		trace.WithAttributes(
			attribute.String("generation.label", label),
			attribute.Int("generation.attempt", n),
		))
	defer span.End()

	att := Attempt{Number: n, Prompt: prompt}
	start := time.Now()

	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	resp, err := p.provider.Completion(callCtx, &llm.ChatRequest{
		Model: p.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: req.SystemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		},
		MaxTokens:      p.maxTokens,
		Temperature:    p.temperature,
		ResponseFormat: llm.ResponseFormatJSON,
		ResponseSchema: schemaHint,
		Timeout:        p.callTimeout,
		Metadata:       map[string]string{"label": label},
	})
	cancel()
	att.Duration = time.Since(start)

	var terminal error
	var data json.RawMessage

	switch {
	case err != nil && ctx.Err() != nil:
		// 上游调用方已取消，不再修复
		att.Outcome = OutcomeCanceled
		att.ProviderErr = err
		terminal = canceledError(ctx.Err(), err)

	case err != nil && llm.IsRateLimited(err):
		att.Outcome = OutcomeRateLimited
		att.ProviderErr = err
		secs := llm.ExtractRetryAfterSeconds(err)
		terminal = types.NewRateLimit(
			fmt.Sprintf("AI provider is rate limited, retry in %ds", secs), secs,
		).WithCause(err)

	case err != nil:
		att.Outcome = OutcomeProviderError
		att.ProviderErr = err
		att.Issues = []ParseError{{Message: providerIssue(err)}}

	default:
		att.Raw = resp.Text()
		data = p.check(req.Schema, &att)
	}

	span.SetAttributes(attribute.String("generation.outcome", att.Outcome))
	if att.Outcome != OutcomeSuccess {
		span.SetStatus(codes.Error, att.Outcome)
	}
	if p.metrics != nil {
		p.metrics.RecordGenerationAttempt(label, att.Outcome, att.Duration)
	}
	attrs := metric.WithAttributes(
		attribute.String("label", label),
		attribute.String("outcome", att.Outcome),
	)
	if p.attemptTotal != nil {
		p.attemptTotal.Add(ctx, 1, attrs)
	}
	if p.attemptDuration != nil {
		p.attemptDuration.Record(ctx, att.Duration.Seconds(), attrs)
	}

	fields := []zap.Field{
		zap.String("label", label),
		zap.Int("attempt", n),
		zap.Duration("duration", att.Duration),
		zap.String("outcome", att.Outcome),
	}
	switch {
	case att.Outcome == OutcomeSuccess:
		p.logger.Debug("generation attempt succeeded", fields...)
	case att.ProviderErr != nil:
		p.logger.Warn("generation attempt failed", append(fields, zap.Error(att.ProviderErr))...)
	default:
		p.logger.Warn("generation attempt failed", append(fields, zap.Int("issues", len(att.Issues)))...)
	}

	return att, data, terminal
}

// check extracts and validates the raw text, recording the outcome on att.
func (p *Pipeline) check(schema *JSONSchema, att *Attempt) json.RawMessage {
	if strings.TrimSpace(att.Raw) == "" {
		att.Outcome = OutcomeEmpty
		att.Issues = []ParseError{{Message: "empty response"}}
		return nil
	}

	raw, err := ExtractJSON(att.Raw)
	if err != nil {
		att.Outcome = OutcomeNoJSON
		att.ExtractErr = err
		att.Issues = []ParseError{{Message: "no JSON found"}}
		return nil
	}

	if err := p.validator.Validate(raw, schema); err != nil {
		att.Outcome = OutcomeInvalid
		var verrs *ValidationErrors
		if errors.As(err, &verrs) {
			att.Issues = verrs.Errors
		} else {
			att.Issues = []ParseError{{Message: err.Error()}}
		}
		return nil
	}

	att.Outcome = OutcomeSuccess
	return raw
}

func (p *Pipeline) repairPrompt(req GenerateRequest, last Attempt) string {
	if req.Repair != nil {
		return req.Repair(req.UserPrompt, last.Issues)
	}
	return GenericRepairPrompt(req.UserPrompt, last.Issues)
}

// GenericRepairPrompt appends the violation list and a rewrite instruction
// to the original prompt.
func GenericRepairPrompt(original string, issues []ParseError) string {
	var b strings.Builder
	b.WriteString(original)
	b.WriteString("\n\nYour previous output was invalid. Fix these problems:\n")
	b.WriteString(FormatIssues(issues))
	b.WriteString("\nRewrite only the JSON, no extra keys, no markdown.")
	return b.String()
}

// FormatIssues renders violations as a bullet list.
func FormatIssues(issues []ParseError) string {
	if len(issues) == 0 {
		return "- output did not match the required JSON schema\n"
	}
	var b strings.Builder
	for _, is := range issues {
		b.WriteString("- ")
		if is.Path != "" {
			b.WriteString(is.Path)
			b.WriteString(": ")
		}
		b.WriteString(is.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func exhaustedError(genErr *GenerationError) *types.Error {
	debug := &types.DebugInfo{
		Label:         genErr.Label,
		AttemptIssues: make([][]types.Issue, 0, len(genErr.Attempts)),
	}
	for _, a := range genErr.Attempts {
		issues := toIssues(a.Issues)
		if issues == nil {
			issues = []types.Issue{}
		}
		debug.AttemptIssues = append(debug.AttemptIssues, issues)
	}

	last := genErr.Attempts[len(genErr.Attempts)-1]
	debug.RawPreview = truncateRunes(last.Raw, rawPreviewRunes)
	if last.ProviderErr != nil {
		debug.Cause = last.ProviderErr.Error()
	} else if last.ExtractErr != nil {
		debug.Cause = last.ExtractErr.Error()
	}

	return types.NewAIError("AI output failed validation after repair").
		WithDebug(debug).
		WithCause(genErr)
}

func canceledError(ctxErr, providerErr error) *types.Error {
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return types.NewTimeout("request deadline exceeded").WithCause(providerErr)
	}
	return types.NewNetworkError("request canceled").WithCause(ctxErr)
}

func providerIssue(err error) string {
	if llm.IsTimeout(err) {
		return "AI provider call timed out"
	}
	return "AI provider call failed: " + err.Error()
}
