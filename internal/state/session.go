package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hydrakit/hydra/pkg/models"
)

// Session CRUD operations

// CreateSession inserts a new session row.
func (db *DB) CreateSession(s *models.Session) error {
	var parentID *string
	if s.ParentID != "" {
		parentID = &s.ParentID
	}
	var completedAt *string
	if s.CompletedAt != nil {
		v := formatTime(*s.CompletedAt)
		completedAt = &v
	}

	_, err := db.Exec(`
		INSERT INTO sessions (id, parent_id, person_name, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ID, parentID, s.PersonName, string(s.Status), formatTime(s.CreatedAt), completedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil when not found.
func (db *DB) GetSession(id string) (*models.Session, error) {
	row := db.QueryRow(`
		SELECT id, parent_id, person_name, status, created_at, completed_at
		FROM sessions WHERE id = ?
	`, id)

	s, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// UpdateSession updates a session's status and completion time.
func (db *DB) UpdateSession(s *models.Session) error {
	var completedAt *string
	if s.CompletedAt != nil {
		v := formatTime(*s.CompletedAt)
		completedAt = &v
	}

	_, err := db.Exec(`
		UPDATE sessions SET person_name = ?, status = ?, completed_at = ?
		WHERE id = ?
	`, s.PersonName, string(s.Status), completedAt, s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// DeleteSession deletes a session by ID. Its messages cascade.
func (db *DB) DeleteSession(id string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions lists all sessions, optionally filtered by status,
// newest first.
func (db *DB) ListSessions(status *models.SessionStatus) ([]models.Session, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, parent_id, person_name, status, created_at, completed_at
			FROM sessions WHERE status = ? ORDER BY created_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, parent_id, person_name, status, created_at, completed_at
			FROM sessions ORDER BY created_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

// ListChildren lists all sessions spawned by the given parent, oldest first.
func (db *DB) ListChildren(parentID string) ([]models.Session, error) {
	rows, err := db.Query(`
		SELECT id, parent_id, person_name, status, created_at, completed_at
		FROM sessions WHERE parent_id = ? ORDER BY created_at
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, nil
}

// scanSession maps one sessions row through the given scan function.
func scanSession(scan func(dest ...any) error) (*models.Session, error) {
	var s models.Session
	var parentID sql.NullString
	var createdAt string
	var completedAt sql.NullString

	if err := scan(&s.ID, &parentID, &s.PersonName, &s.Status, &createdAt, &completedAt); err != nil {
		return nil, err
	}

	if parentID.Valid {
		s.ParentID = parentID.String
	}
	s.CreatedAt, _ = parseTime(createdAt)
	s.CompletedAt = parseNullableTime(completedAt)
	return &s, nil
}

// Message operations

// AppendMessage inserts a message into a session's transcript.
func (db *DB) AppendMessage(m *models.Message) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := db.Exec(`
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.SessionID, m.Role, m.Content, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListMessages returns a session's transcript in insertion order.
func (db *DB) ListMessages(sessionID string) ([]models.Message, error) {
	rows, err := db.Query(`
		SELECT id, session_id, role, content, created_at
		FROM messages WHERE session_id = ? ORDER BY created_at, id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = parseTime(createdAt)
		messages = append(messages, m)
	}
	return messages, nil
}
