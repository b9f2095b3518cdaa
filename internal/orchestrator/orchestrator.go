package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/hydrakit/hydra/pkg/models"
)

// Orchestrator fans one task out over many work items, runs the child
// sessions with bounded concurrency, and aggregates their outcomes under
// the policy's result strategy.
type Orchestrator struct {
	host Host
	opts orchestratorOptions
}

// New creates an Orchestrator for the given host.
func New(host Host, opts ...Option) *Orchestrator {
	o := &Orchestrator{host: host}
	for _, opt := range opts {
		opt(&o.opts)
	}
	return o
}

// unitResult pairs an outcome with its work-item index so results can be
// reassembled in input order regardless of completion order.
type unitResult struct {
	idx     int
	outcome models.SessionOutcome
}

// Orchestrate runs one child session per work item and returns the
// aggregate result.
//
// Validation failures (nil host, empty person name, nil request data, nil
// config or policy, unknown strategy) abort the call before any session is
// created, as does a recursion ceiling that forbids the parent from
// spawning. Per-item failures, including session-creation failures and
// timeouts, are captured into that item's outcome and never abort the
// batch. An already-cancelled context yields a well-formed failed result
// rather than an error.
//
// Results are ordered by work-item input order for WaitForAll and
// StreamIndividual. FirstResultWins returns the outcomes observed up to
// the first success, also in input order.
func (o *Orchestrator) Orchestrate(ctx context.Context, parent *models.Session, personName string, refsources map[string]any, items []models.WorkItem, cfg *models.TaskConfig) (*models.OrchestrationResult, error) {
	if o.host == nil {
		return nil, &ValidationError{Arg: "host"}
	}
	if personName == "" {
		return nil, errPersonName()
	}
	if refsources == nil {
		return nil, &ValidationError{Arg: "refsources"}
	}
	if cfg == nil {
		return nil, &ValidationError{Arg: "config"}
	}
	policy := cfg.Parallel
	if policy == nil {
		return nil, errNilParallelConfig()
	}

	strategy := policy.ResultStrategy
	switch strategy {
	case models.StrategyWaitForAll, models.StrategyStreamIndividual, models.StrategyFirstResultWins:
	default:
		return nil, errStrategyNotSupported(string(strategy))
	}

	start := time.Now()
	result := &models.OrchestrationResult{
		Strategy:      strategy,
		TotalSessions: len(items),
		StartTime:     start,
	}

	if len(items) == 0 {
		result.Success = true
		result.EndTime = timeAfter(start)
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		// Cancellation is a reported failure mode, not a crash.
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Execution failed: %v", err)
		result.EndTime = timeAfter(start)
		return result, nil
	}

	allowed, err := SpawnAllowed(ctx, o.host, parent, cfg.MaxRecursionLevel)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errSpawnNotAllowed(cfg.MaxRecursionLevel)
	}

	log.Printf("[orchestrator] starting %d sessions, strategy=%s, max_concurrency=%d",
		len(items), strategy, policy.EffectiveMaxConcurrency())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, policy.EffectiveMaxConcurrency())
	completed := make(chan unitResult, len(items))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, item models.WorkItem) {
			defer wg.Done()

			// A unit waits for a limiter slot before touching the host and
			// releases it on completion regardless of outcome. A cancelled
			// unit still reports a failed outcome so session accounting
			// stays exact.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				completed <- unitResult{idx: idx, outcome: cancelledOutcome(runCtx.Err())}
				return
			}

			completed <- unitResult{idx: idx, outcome: o.runUnit(runCtx, parent, personName, refsources, cfg, item)}
		}(i, item)
	}

	switch strategy {
	case models.StrategyFirstResultWins:
		o.aggregateFirstWins(result, completed, cancel, len(items))
	default:
		wg.Wait()
		o.aggregateAll(result, completed, len(items))
	}

	result.EndTime = timeAfter(start)
	log.Printf("[orchestrator] finished: %d/%d succeeded in %s",
		result.SuccessCount(), result.TotalSessions, result.Duration())

	return result, nil
}

// runUnit runs one work item and always produces an outcome; runner and
// template errors become failed outcomes here so siblings keep going. When
// the policy sets a per-session timeout the unit races the runner against
// it and completes with a failed outcome on expiry; a run already past its
// point of no return finishes in the background and its result is dropped.
func (o *Orchestrator) runUnit(ctx context.Context, parent *models.Session, personName string, refsources map[string]any, cfg *models.TaskConfig, item models.WorkItem) models.SessionOutcome {
	unitStart := time.Now()

	unitCtx := ctx
	timeout := cfg.Parallel.SessionTimeout()
	if timeout > 0 {
		var cancelUnit context.CancelFunc
		unitCtx, cancelUnit = context.WithTimeout(ctx, timeout)
		defer cancelUnit()
	}

	type runReturn struct {
		outcome *models.SessionOutcome
		err     error
	}
	ch := make(chan runReturn, 1)
	go func() {
		outcome, err := RunSession(unitCtx, o.host, parent, personName, refsources, cfg, item)
		ch <- runReturn{outcome: outcome, err: err}
	}()

	var outcome models.SessionOutcome
	select {
	case r := <-ch:
		switch {
		case r.err != nil:
			outcome = failedOutcome(unitStart, r.err)
		case r.outcome != nil:
			outcome = *r.outcome
		default:
			outcome = failedOutcome(unitStart, errors.New("session returned no outcome"))
		}
	case <-unitCtx.Done():
		err := unitCtx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("session timed out after %dms", cfg.Parallel.SessionTimeoutMs)
		}
		outcome = failedOutcome(unitStart, err)
	}

	if !outcome.Success {
		debugLog("[orchestrator] item %q failed: %s", item.Name, outcome.Error)
	}
	o.publish(item, outcome)
	return outcome
}

// aggregateAll drains every unit's outcome and reassembles input order.
// Used for WaitForAll and StreamIndividual, which differ only in whether
// outcomes were published along the way.
func (o *Orchestrator) aggregateAll(result *models.OrchestrationResult, completed <-chan unitResult, total int) {
	ordered := make([]unitResult, 0, total)
	for len(ordered) < total {
		ordered = append(ordered, <-completed)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].idx < ordered[j].idx })

	result.Results = make([]models.SessionOutcome, 0, total)
	for _, r := range ordered {
		result.Results = append(result.Results, r.outcome)
	}

	successes := result.SuccessCount()
	result.Success = successes == total
	if successes < total {
		result.ErrorMessage = models.CompletionSummary(successes, total)
	}
}

// aggregateFirstWins returns as soon as the first successful outcome
// arrives, cancelling the remaining units best-effort. If every unit fails
// before any succeeds it reports failure the same way WaitForAll does.
func (o *Orchestrator) aggregateFirstWins(result *models.OrchestrationResult, completed <-chan unitResult, cancel context.CancelFunc, total int) {
	observed := make([]unitResult, 0, total)
	for len(observed) < total {
		r := <-completed
		observed = append(observed, r)
		if r.outcome.Success {
			cancel()
			break
		}
	}
	sort.Slice(observed, func(i, j int) bool { return observed[i].idx < observed[j].idx })

	result.Results = make([]models.SessionOutcome, 0, len(observed))
	won := false
	for _, r := range observed {
		result.Results = append(result.Results, r.outcome)
		if r.outcome.Success {
			won = true
		}
	}

	result.Success = won
	if !won {
		result.ErrorMessage = models.CompletionSummary(0, total)
	}
}

// publish hands an outcome to the configured sink, if any.
func (o *Orchestrator) publish(item models.WorkItem, outcome models.SessionOutcome) {
	if o.opts.sink == nil {
		return
	}
	o.opts.sink(item, outcome)
}

// failedOutcome wraps a unit error into a failed session outcome.
func failedOutcome(start time.Time, err error) models.SessionOutcome {
	var sessID string
	var execErr *SessionExecutionError
	if errors.As(err, &execErr) {
		sessID = execErr.SessionID
	}
	return models.SessionOutcome{
		SessionID: sessID,
		Success:   false,
		Error:     err.Error(),
		StartTime: start,
		EndTime:   timeAfter(start),
	}
}

// cancelledOutcome is the outcome for a unit that never got a limiter slot.
func cancelledOutcome(err error) models.SessionOutcome {
	now := time.Now()
	return models.SessionOutcome{
		Success:   false,
		Error:     fmt.Sprintf("Execution failed: %v", err),
		StartTime: now,
		EndTime:   timeAfter(now),
	}
}

// timeAfter returns the current time, nudged forward when the clock has not
// advanced past start, so end timestamps always follow start timestamps.
func timeAfter(start time.Time) time.Time {
	now := time.Now()
	if !now.After(start) {
		return start.Add(time.Nanosecond)
	}
	return now
}
