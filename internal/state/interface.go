package state

import (
	"io"

	"github.com/hydrakit/hydra/pkg/models"
)

// SessionStore handles session persistence operations.
type SessionStore interface {
	CreateSession(s *models.Session) error
	GetSession(id string) (*models.Session, error)
	UpdateSession(s *models.Session) error
	ListSessions(status *models.SessionStatus) ([]models.Session, error)
	ListChildren(parentID string) ([]models.Session, error)
}

// MessageStore handles session transcript persistence.
type MessageStore interface {
	AppendMessage(m *models.Message) error
	ListMessages(sessionID string) ([]models.Message, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	// Migrate applies all pending schema migrations.
	Migrate() error
}

// Store defines the interface for session persistence. It lets the session
// host work with any backend without depending on the concrete SQLite
// implementation.
type Store interface {
	io.Closer
	Migrator
	SessionStore
	MessageStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ SessionStore = (*DB)(nil)
	_ MessageStore = (*DB)(nil)
)
