package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hydrakit/hydra/internal/signals"
	"github.com/hydrakit/hydra/internal/state"
	"github.com/hydrakit/hydra/pkg/models"
)

var (
	sessionsStatus    string
	sessionsLimit     int
	sessionsOlderThan time.Duration
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage persisted sessions",
	Long: `List, inspect, and clean up sessions in the project state database.

Without a subcommand, lists recent sessions.

Subcommands:
  show <id>   Show a session, its children, and its transcript
  clean       Mark sessions left active by a crashed run as failed
  purge       Delete finished sessions older than a cutoff
  kill        Signal the running orchestration to stop
  pause       Pause the running orchestration before its next API call
  resume      Resume a paused orchestration`,
	RunE: runSessionsList,
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session, its children, and its transcript",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsShow,
}

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Mark interrupted sessions as failed",
	RunE:  runSessionsClean,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete finished sessions older than a cutoff",
	RunE:  runSessionsPurge,
}

var sessionsKillCmd = &cobra.Command{
	Use:   "kill",
	Short: "Signal the running orchestration to stop",
	RunE:  runSessionsKill,
}

var sessionsPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running orchestration",
	RunE:  runSessionsPause,
}

var sessionsResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused orchestration",
	RunE:  runSessionsResume,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "Filter by status: active, completed, or failed")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "Maximum number of sessions to list")
	sessionsPurgeCmd.Flags().DurationVar(&sessionsOlderThan, "older-than", 168*time.Hour, "Delete finished sessions older than this")

	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsCleanCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)
	sessionsCmd.AddCommand(sessionsKillCmd)
	sessionsCmd.AddCommand(sessionsPauseCmd)
	sessionsCmd.AddCommand(sessionsResumeCmd)
}

// openSessionDB opens the project state database, falling back to the
// global one. Returns nil without error when neither exists yet.
func openSessionDB() (*state.DB, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.ProjectDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	db, err := openSessionDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No sessions recorded. Run 'hydra run <task-file>' to start.")
		return nil
	}
	defer db.Close()

	var filter *models.SessionStatus
	if sessionsStatus != "" {
		status := models.SessionStatus(sessionsStatus)
		if !status.Valid() {
			return fmt.Errorf("invalid status %q: must be active, completed, or failed", sessionsStatus)
		}
		filter = &status
	}

	sessions, err := db.ListSessions(filter)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}
	if sessionsLimit > 0 && len(sessions) > sessionsLimit {
		sessions = sessions[:sessionsLimit]
	}

	for _, s := range sessions {
		marker := "·"
		if s.Root() {
			marker = "●"
		}
		fmt.Printf("%s %s  %-9s  %-12s  %s ago\n",
			marker, s.ID, statusString(s.Status), s.PersonName, formatDuration(time.Since(s.CreatedAt)))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, args []string) error {
	db, err := openSessionDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No sessions recorded.")
		return nil
	}
	defer db.Close()

	session, err := db.GetSession(args[0])
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %s not found", args[0])
	}

	fmt.Printf("Session: %s\n", session.ID)
	fmt.Printf("  Person: %s\n", session.PersonName)
	fmt.Printf("  Status: %s\n", statusString(session.Status))
	fmt.Printf("  Created: %s ago\n", formatDuration(time.Since(session.CreatedAt)))
	if session.ParentID != "" {
		fmt.Printf("  Parent: %s\n", session.ParentID)
	}
	if session.CompletedAt != nil {
		fmt.Printf("  Duration: %s\n", session.CompletedAt.Sub(session.CreatedAt).Round(time.Second))
	}

	children, err := db.ListChildren(session.ID)
	if err != nil {
		return fmt.Errorf("list children: %w", err)
	}
	if len(children) > 0 {
		fmt.Printf("\nChildren (%d):\n", len(children))
		for _, c := range children {
			fmt.Printf("  %s  %-9s  %s\n", c.ID, statusString(c.Status), c.PersonName)
		}
	}

	messages, err := db.ListMessages(session.ID)
	if err != nil {
		return fmt.Errorf("list messages: %w", err)
	}
	if len(messages) > 0 {
		fmt.Printf("\nTranscript (%d messages):\n", len(messages))
		for _, m := range messages {
			fmt.Printf("  [%s] %s\n", m.Role, truncateLine(m.Content, 100))
		}
	}
	return nil
}

func runSessionsClean(cmd *cobra.Command, args []string) error {
	db, err := openSessionDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No sessions recorded.")
		return nil
	}
	defer db.Close()

	n, err := state.NewRecoveryManager(db).Clean()
	if err != nil {
		return fmt.Errorf("clean sessions: %w", err)
	}
	if n == 0 {
		fmt.Println("No interrupted sessions found.")
	} else {
		fmt.Printf("Marked %d interrupted sessions as failed.\n", n)
	}
	return nil
}

func runSessionsPurge(cmd *cobra.Command, args []string) error {
	db, err := openSessionDB()
	if err != nil {
		return err
	}
	if db == nil {
		fmt.Println("No sessions recorded.")
		return nil
	}
	defer db.Close()

	n, err := db.PurgeOldSessions(sessionsOlderThan)
	if err != nil {
		return fmt.Errorf("purge sessions: %w", err)
	}
	fmt.Printf("Purged %d sessions older than %s.\n", n, sessionsOlderThan)
	return nil
}

func runSessionsKill(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	watcher, err := signals.NewWatcher(cwd)
	if err != nil {
		return fmt.Errorf("open signals: %w", err)
	}
	defer watcher.Close()

	if err := watcher.SendKill(); err != nil {
		return fmt.Errorf("send kill signal: %w", err)
	}
	fmt.Println("Kill signal sent. The running orchestration stops before its next API call.")
	return nil
}

func runSessionsPause(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	watcher, err := signals.NewWatcher(cwd)
	if err != nil {
		return fmt.Errorf("open signals: %w", err)
	}
	defer watcher.Close()

	if err := watcher.SendPause(); err != nil {
		return fmt.Errorf("send pause signal: %w", err)
	}
	fmt.Println("Pause signal sent. Sessions hold before their next API call; run 'hydra sessions resume' to continue.")
	return nil
}

func runSessionsResume(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	watcher, err := signals.NewWatcher(cwd)
	if err != nil {
		return fmt.Errorf("open signals: %w", err)
	}
	defer watcher.Close()

	if err := watcher.ClearPause(); err != nil {
		return fmt.Errorf("clear pause signal: %w", err)
	}
	fmt.Println("Pause signal cleared. Sessions resume.")
	return nil
}

// statusString colors a session status for terminal display.
func statusString(s models.SessionStatus) string {
	switch s {
	case models.SessionCompleted:
		return color.GreenString(string(s))
	case models.SessionFailed:
		return color.RedString(string(s))
	case models.SessionActive:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// truncateLine flattens and truncates transcript content to one line.
func truncateLine(s string, max int) string {
	flat := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' {
			r = ' '
		}
		flat = append(flat, r)
	}
	if len(flat) <= max {
		return string(flat)
	}
	return string(flat[:max-3]) + "..."
}
