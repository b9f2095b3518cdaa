package models

import "time"

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	// SessionActive indicates the session is running.
	SessionActive SessionStatus = "active"
	// SessionCompleted indicates the session finished successfully.
	SessionCompleted SessionStatus = "completed"
	// SessionFailed indicates the session finished with an error.
	SessionFailed SessionStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionFailed:
		return true
	default:
		return false
	}
}

// Session is one unit of conversational execution, created and run by the
// host. A session spawned by another session carries its parent's ID.
type Session struct {
	// ID is the unique session identifier.
	ID string `json:"id"`
	// ParentID is the spawning session's ID, empty for root sessions.
	ParentID string `json:"parent_id,omitempty"`
	// PersonName is the persona the session runs as.
	PersonName string `json:"person_name"`
	// Status is the current lifecycle state.
	Status SessionStatus `json:"status"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// CompletedAt is when the session finished, if it has.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Root returns true if the session has no parent.
func (s *Session) Root() bool {
	return s.ParentID == ""
}

// Message is one turn of a session's conversation.
type Message struct {
	// ID is the unique message identifier.
	ID string `json:"id"`
	// SessionID is the owning session.
	SessionID string `json:"session_id"`
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// CreatedAt is when the message was recorded.
	CreatedAt time.Time `json:"created_at"`
}
