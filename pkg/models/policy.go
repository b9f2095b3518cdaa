package models

import "time"

// ExecutionMode selects how work items are derived from request data.
type ExecutionMode string

const (
	// ModeParameterBased fans out over the top-level entries of the
	// request-data map, minus excluded and internal bookkeeping keys.
	ModeParameterBased ExecutionMode = "parameter_based"
	// ModeListBased fans out over the elements of one named list-valued
	// parameter in the request data.
	ModeListBased ExecutionMode = "list_based"
	// ModeExternalList fans out over a literal list carried by the policy
	// itself, ignoring request data.
	ModeExternalList ExecutionMode = "external_list"
)

// Valid returns true if the mode is a known value.
func (m ExecutionMode) Valid() bool {
	switch m {
	case ModeParameterBased, ModeListBased, ModeExternalList:
		return true
	default:
		return false
	}
}

// ResultStrategy selects how child-session outcomes combine into one result.
type ResultStrategy string

const (
	// StrategyWaitForAll waits for every session before returning.
	StrategyWaitForAll ResultStrategy = "wait_for_all"
	// StrategyStreamIndividual publishes each outcome as it completes and
	// still returns one final result once all sessions finish.
	StrategyStreamIndividual ResultStrategy = "stream_individual"
	// StrategyFirstResultWins returns on the first successful outcome and
	// cancels the rest best-effort.
	StrategyFirstResultWins ResultStrategy = "first_result_wins"
)

// Valid returns true if the strategy is a known value.
func (s ResultStrategy) Valid() bool {
	switch s {
	case StrategyWaitForAll, StrategyStreamIndividual, StrategyFirstResultWins:
		return true
	default:
		return false
	}
}

// ParallelPolicy describes how one task fans out over many work items.
// Like TaskConfig it is read-only once orchestration starts.
type ParallelPolicy struct {
	// Mode selects the work-item source.
	Mode ExecutionMode `json:"mode" yaml:"mode"`
	// ListParameter names the list-valued parameter for ModeListBased.
	ListParameter string `json:"list_parameter,omitempty" yaml:"list_parameter,omitempty"`
	// ExternalItems is the literal fan-out list for ModeExternalList.
	ExternalItems []any `json:"external_items,omitempty" yaml:"external_items,omitempty"`
	// MaxConcurrency bounds in-flight sessions. Values <= 0 normalize to 1.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
	// SessionTimeoutMs is the per-session timeout. Zero means no timeout.
	SessionTimeoutMs int64 `json:"session_timeout_ms,omitempty" yaml:"session_timeout_ms,omitempty"`
	// ResultStrategy selects the aggregation policy.
	ResultStrategy ResultStrategy `json:"result_strategy" yaml:"result_strategy"`
	// ExcludedParameters lists request-data keys that never become work
	// items in ModeParameterBased.
	ExcludedParameters []string `json:"excluded_parameters,omitempty" yaml:"excluded_parameters,omitempty"`
}

// EffectiveMaxConcurrency returns the concurrency bound with values <= 0
// normalized to 1.
func (p *ParallelPolicy) EffectiveMaxConcurrency() int {
	if p.MaxConcurrency < 1 {
		return 1
	}
	return p.MaxConcurrency
}

// SessionTimeout returns the per-session timeout as a duration, or zero
// when no timeout applies.
func (p *ParallelPolicy) SessionTimeout() time.Duration {
	if p.SessionTimeoutMs <= 0 {
		return 0
	}
	return time.Duration(p.SessionTimeoutMs) * time.Millisecond
}

// Excludes returns true if the named parameter is excluded from fan-out.
func (p *ParallelPolicy) Excludes(name string) bool {
	for _, ex := range p.ExcludedParameters {
		if ex == name {
			return true
		}
	}
	return false
}
