package orchestrator

import "github.com/hydrakit/hydra/pkg/models"

// OutcomeSink receives each work item's outcome as soon as the unit
// finishes, before aggregation. Sinks are called from unit goroutines and
// must be safe for concurrent use.
type OutcomeSink func(item models.WorkItem, outcome models.SessionOutcome)

type orchestratorOptions struct {
	sink OutcomeSink
}

// Option configures an Orchestrator.
type Option func(*orchestratorOptions)

// WithOutcomeSink streams per-item outcomes to fn as they complete. This is
// how StreamIndividual consumers observe progress; the sink also fires for
// the other strategies.
func WithOutcomeSink(fn OutcomeSink) Option {
	return func(o *orchestratorOptions) {
		o.sink = fn
	}
}
