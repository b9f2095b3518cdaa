// Package orchestrator coordinates recursive and parallel child-session
// execution.
//
// The package provides functionality for:
//   - Recursion gating: computing how deep a session's spawn chain already
//     is and refusing further spawning past a configured ceiling
//   - Session running: creating one child session, rendering its prompt and
//     urging templates, and running it to completion
//   - Parallel orchestration: fanning a task out over many work items with
//     bounded concurrency, per-session timeouts, and a caller-selected
//     result strategy (wait-for-all, stream-individual, first-result-wins)
//
// The host that actually talks to a language model is abstracted behind the
// Host and ChildSession interfaces; see internal/claude for the Anthropic
// implementation.
//
// Example usage:
//
//	orch := orchestrator.New(host)
//	items := extract.WorkItems(refsources, cfg.Parallel)
//	result, err := orch.Orchestrate(ctx, parent, "reviewer", refsources, items, cfg)
package orchestrator
