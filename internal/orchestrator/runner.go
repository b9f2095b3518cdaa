package orchestrator

import (
	"context"
	"strings"

	"github.com/hydrakit/hydra/internal/prompt"
	"github.com/hydrakit/hydra/pkg/models"
)

// RunSession runs exactly one child task: it validates inputs, checks the
// recursion ceiling for the parent, asks the host for a child session,
// renders the prompt and urging templates, and runs the session to
// completion.
//
// The child session is created before any template rendering, so one
// session attempt is recorded per work item even when a template later
// fails. Errors after validation propagate to the caller unchanged; the
// orchestrator is responsible for capturing them into a failed outcome so
// sibling runs are unaffected.
func RunSession(ctx context.Context, host Host, parent *models.Session, personName string, refsources map[string]any, cfg *models.TaskConfig, item models.WorkItem) (*models.SessionOutcome, error) {
	if host == nil {
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
	if strings.TrimSpace(cfg.UrgingTemplate) == "" {
		// Urging text is what re-prompts a child session toward task
		// completion; a task without it can never finish.
		return nil, &ConfigurationError{Message: "urging template cannot be empty"}
	}

	allowed, err := SpawnAllowed(ctx, host, parent, cfg.MaxRecursionLevel)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, errSpawnNotAllowed(cfg.MaxRecursionLevel)
	}

	child, err := host.StartChildSession(ctx, parent, personName)
	if err != nil {
		return nil, &SessionExecutionError{Err: err}
	}

	renderedPrompt, err := prompt.Render(cfg.PromptTemplate, refsources, cfg, item)
	if err != nil {
		return nil, err
	}

	renderedUrging, err := prompt.Render(cfg.UrgingTemplate, refsources, cfg, item)
	if err != nil {
		return nil, err
	}

	outcome, err := child.WaitForCompletion(ctx, renderedPrompt, cfg, renderedUrging)
	if err != nil {
		return nil, &SessionExecutionError{SessionID: child.ID(), Err: err}
	}

	return outcome, nil
}
