package orchestrator

import "fmt"

// ValidationError reports a null or empty required argument. It is raised
// synchronously, before any session is created, and aborts the whole call.
type ValidationError struct {
	// Arg is the offending argument name.
	Arg string
	// Message overrides the default wording when set.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (argument %q)", e.Message, e.Arg)
	}
	return fmt.Sprintf("argument %q cannot be nil or empty", e.Arg)
}

// ConfigurationError reports an unusable task configuration: a missing
// parallel policy, a missing urging template, or a negative recursion limit.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// NotSupportedError reports a result-strategy value outside the known set.
type NotSupportedError struct {
	Message string
}

func (e *NotSupportedError) Error() string {
	return e.Message
}

// SessionExecutionError reports a failure local to one child-session run:
// session creation threw, the run failed, or the per-session timeout
// elapsed. The orchestrator captures it into that item's outcome; it never
// stops sibling work items.
type SessionExecutionError struct {
	// SessionID is the child session, empty when creation itself failed.
	SessionID string
	// Err is the underlying failure.
	Err error
}

func (e *SessionExecutionError) Error() string {
	if e.SessionID != "" {
		return fmt.Sprintf("session %s: %v", e.SessionID, e.Err)
	}
	return fmt.Sprintf("session execution failed: %v", e.Err)
}

func (e *SessionExecutionError) Unwrap() error {
	return e.Err
}

// errPersonName is the canonical empty-person-name validation error.
func errPersonName() *ValidationError {
	return &ValidationError{Arg: "personName", Message: "Person name cannot be null or empty"}
}

// errNilParallelConfig is the canonical missing-policy configuration error.
func errNilParallelConfig() *ConfigurationError {
	return &ConfigurationError{Message: "ParallelConfig cannot be null"}
}

// errSpawnNotAllowed reports a spawn withheld by the recursion ceiling.
func errSpawnNotAllowed(maxLevel int) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf("spawning not allowed: recursion level limit is %d", maxLevel)}
}

// errStrategyNotSupported names the offending strategy value.
func errStrategyNotSupported(v string) *NotSupportedError {
	return &NotSupportedError{Message: fmt.Sprintf("Result strategy %q is not supported", v)}
}
