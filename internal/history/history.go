// Package history records completed orchestration runs for later review.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hydrakit/hydra/pkg/models"
)

// Run is one recorded orchestration: the task it ran, how it fanned out,
// and how it ended.
type Run struct {
	ID            string
	TaskName      string
	Strategy      string
	TotalSessions int
	Successes     int
	Success       bool
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Store persists orchestration runs.
type Store struct {
	db *sql.DB
}

// NewStore opens a run-history store at the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS orchestration_runs (
			id TEXT PRIMARY KEY,
			task_name TEXT,
			strategy TEXT,
			total_sessions INT,
			successes INT,
			success INT,
			error_message TEXT,
			outcomes TEXT,
			started_at DATETIME,
			finished_at DATETIME
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores a finished orchestration result and returns the run.
func (s *Store) Record(taskName string, result *models.OrchestrationResult) (*Run, error) {
	if result == nil {
		return nil, fmt.Errorf("result is nil")
	}

	run := &Run{
		ID:            uuid.New().String(),
		TaskName:      taskName,
		Strategy:      string(result.Strategy),
		TotalSessions: result.TotalSessions,
		Successes:     result.SuccessCount(),
		Success:       result.Success,
		ErrorMessage:  result.ErrorMessage,
		StartedAt:     result.StartTime,
		FinishedAt:    result.EndTime,
	}

	outcomes, err := json.Marshal(result.Results)
	if err != nil {
		return nil, fmt.Errorf("marshal outcomes: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO orchestration_runs (id, task_name, strategy, total_sessions, successes, success, error_message, outcomes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.TaskName, run.Strategy, run.TotalSessions, run.Successes, run.Success, run.ErrorMessage, string(outcomes), run.StartedAt, run.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return run, nil
}

// Get retrieves a run by ID.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(`
		SELECT id, task_name, strategy, total_sessions, successes, success, error_message, started_at, finished_at
		FROM orchestration_runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

// Outcomes returns the per-session outcomes recorded for a run.
func (s *Store) Outcomes(id string) ([]models.SessionOutcome, error) {
	row := s.db.QueryRow(`SELECT outcomes FROM orchestration_runs WHERE id = ?`, id)

	var raw string
	err := row.Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan outcomes: %w", err)
	}

	var outcomes []models.SessionOutcome
	if err := json.Unmarshal([]byte(raw), &outcomes); err != nil {
		return nil, fmt.Errorf("unmarshal outcomes: %w", err)
	}
	return outcomes, nil
}

// List returns the most recent runs, newest first, up to limit.
// A non-positive limit returns all runs.
func (s *Store) List(limit int) ([]Run, error) {
	query := `
		SELECT id, task_name, strategy, total_sessions, successes, success, error_message, started_at, finished_at
		FROM orchestration_runs
		ORDER BY started_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// Delete removes a run by ID.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec(`DELETE FROM orchestration_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var errorMessage sql.NullString
	err := scan(
		&run.ID,
		&run.TaskName,
		&run.Strategy,
		&run.TotalSessions,
		&run.Successes,
		&run.Success,
		&errorMessage,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	if errorMessage.Valid {
		run.ErrorMessage = errorMessage.String
	}
	return &run, nil
}
