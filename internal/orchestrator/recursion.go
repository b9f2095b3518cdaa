package orchestrator

import (
	"context"

	"github.com/hydrakit/hydra/pkg/models"
)

// Level computes a session's recursion level: the number of parent hops
// from the session back to a session with no parent. The chain is resolved
// through the host. A parent that cannot be resolved, or a cycle, ends the
// walk at that point; a broken hierarchy under-reports depth but never
// fails the calculation.
func Level(ctx context.Context, host Host, session *models.Session) (int, error) {
	if session == nil {
		return 0, &ValidationError{Arg: "session"}
	}

	level := 0
	visited := map[string]bool{session.ID: true}
	current := session

	for current.ParentID != "" {
		parent, err := host.OpenSession(ctx, current.ParentID)
		if err != nil || parent == nil {
			// Chain terminated: the parent is gone or unreadable.
			break
		}
		if visited[parent.ID] {
			// Revisited session id means a cycle; treat as terminated.
			break
		}
		visited[parent.ID] = true
		level++
		current = parent
	}

	return level, nil
}

// SpawnAllowed reports whether a session at its current recursion level may
// spawn children under the given ceiling. A session at or above the ceiling
// may not spawn; maxLevel 0 disallows spawning entirely; a negative
// maxLevel is invalid configuration. A nil session is a root invocation at
// level 0.
func SpawnAllowed(ctx context.Context, host Host, session *models.Session, maxLevel int) (bool, error) {
	if maxLevel < 0 {
		return false, &ConfigurationError{Message: "max recursion level cannot be negative"}
	}
	if maxLevel == 0 {
		return false, nil
	}
	if session == nil {
		return true, nil
	}

	level, err := Level(ctx, host, session)
	if err != nil {
		return false, err
	}

	return level < maxLevel, nil
}
