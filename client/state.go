package client

import (
	"time"

	"github.com/BaSui01/claritycast/types"
)

// =============================================================================
// 🔁 重试状态机
// =============================================================================

// Phase 重试阶段
type Phase int

const (
	PhaseAttempting Phase = iota
	PhaseWaiting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseAttempting:
		return "attempting"
	case PhaseWaiting:
		return "waiting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// DelaySource records which rule decided the wait.
type DelaySource int

const (
	DelayNone DelaySource = iota
	DelayBackoff
	DelayRetryAfter
)

func (s DelaySource) String() string {
	switch s {
	case DelayBackoff:
		return "backoff"
	case DelayRetryAfter:
		return "retry_after"
	}
	return "none"
}

// State is the retry state of one logical call.
type State struct {
	Attempt int // 1-based
	Phase   Phase
	Delay   time.Duration
	Source  DelaySource
	Err     *types.Error
}

// Outcome is the result of one attempt. Err is nil only on success.
type Outcome struct {
	Status     int
	Err        *types.Error
	RetryAfter time.Duration
}

// Start 初始状态
func Start() State {
	return State{Attempt: 1, Phase: PhaseAttempting}
}

// Next computes the state that follows s. It performs no I/O.
//
//	Attempting --ok--------------------> Succeeded
//	Attempting --retryable, budget left-> Waiting(delay)
//	Attempting --otherwise-------------> Failed
//	Waiting    ------------------------> Attempting(attempt+1)
func Next(s State, o Outcome, p RetryPolicy, jitter float64) State {
	p = p.normalized()

	switch s.Phase {
	case PhaseWaiting:
		return State{Attempt: s.Attempt + 1, Phase: PhaseAttempting, Err: s.Err}
	case PhaseSucceeded, PhaseFailed:
		return s
	}

	if o.Err == nil {
		return State{Attempt: s.Attempt, Phase: PhaseSucceeded}
	}
	if !o.Err.Retryable || s.Attempt > p.MaxRetries {
		return State{Attempt: s.Attempt, Phase: PhaseFailed, Err: o.Err}
	}

	delay, source := p.Backoff(s.Attempt, jitter), DelayBackoff
	if o.RetryAfter > delay {
		delay, source = o.RetryAfter, DelayRetryAfter
	}
	return State{
		Attempt: s.Attempt,
		Phase:   PhaseWaiting,
		Delay:   delay,
		Source:  source,
		Err:     o.Err,
	}
}
