package orchestrator

import (
	"context"

	"github.com/hydrakit/hydra/pkg/models"
)

// Host is the external collaborator that owns sessions. Implementations
// must be safe for concurrent use; the orchestrator calls into the host
// from many units at once, bounded only by the concurrency limiter.
type Host interface {
	// StartChildSession creates a new session under parent for the given
	// persona and returns a handle to run it. Parent may be nil for root
	// sessions.
	StartChildSession(ctx context.Context, parent *models.Session, personName string) (ChildSession, error)

	// OpenSession resolves a session by ID. Used by the recursion level
	// calculator to walk ancestor chains.
	OpenSession(ctx context.Context, id string) (*models.Session, error)
}

// ChildSession is a spawned session that can be run to completion.
type ChildSession interface {
	// ID returns the session identifier.
	ID() string

	// WaitForCompletion sends the rendered prompt, keeps urging the session
	// toward reporting completion, and returns the structured outcome. It
	// honors ctx for cancellation and timeouts.
	WaitForCompletion(ctx context.Context, prompt string, cfg *models.TaskConfig, urging string) (*models.SessionOutcome, error)
}
