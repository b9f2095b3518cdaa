package state

import (
	"fmt"
	"log"
	"time"

	"github.com/hydrakit/hydra/pkg/models"
)

// InterruptedSession describes a session left active by a previous run.
type InterruptedSession struct {
	SessionID string
	ParentID  string
	CreatedAt time.Time
	Children  int
}

// RecoveryManager detects and cleans up sessions interrupted by a crash or
// kill. A session still marked active when no run is in progress is stale.
type RecoveryManager struct {
	db *DB
}

// NewRecoveryManager creates a RecoveryManager over the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db}
}

// CheckForInterrupted returns the oldest session still marked active, or
// nil when there is nothing to recover.
func (rm *RecoveryManager) CheckForInterrupted() (*InterruptedSession, error) {
	status := models.SessionActive
	sessions, err := rm.db.ListSessions(&status)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	// ListSessions is newest first; report the oldest root of the pile.
	s := sessions[len(sessions)-1]
	children, err := rm.db.ListChildren(s.ID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}

	return &InterruptedSession{
		SessionID: s.ID,
		ParentID:  s.ParentID,
		CreatedAt: s.CreatedAt,
		Children:  len(children),
	}, nil
}

// Clean marks every active session as failed and stamps its completion
// time. Returns the number of sessions cleaned.
func (rm *RecoveryManager) Clean() (int, error) {
	status := models.SessionActive
	sessions, err := rm.db.ListSessions(&status)
	if err != nil {
		return 0, fmt.Errorf("list active sessions: %w", err)
	}

	now := time.Now()
	for i := range sessions {
		s := sessions[i]
		s.Status = models.SessionFailed
		s.CompletedAt = &now
		if err := rm.db.UpdateSession(&s); err != nil {
			return i, fmt.Errorf("fail session %s: %w", s.ID, err)
		}
	}

	if len(sessions) > 0 {
		log.Printf("[state] marked %d interrupted sessions as failed", len(sessions))
	}
	return len(sessions), nil
}
