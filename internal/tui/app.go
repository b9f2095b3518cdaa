// Package tui provides the terminal user interface for hydra runs.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hydrakit/hydra/pkg/models"
)

// OutcomeMsg is sent when one work item's session finishes.
type OutcomeMsg struct {
	Item    models.WorkItem
	Outcome models.SessionOutcome
}

// RunDoneMsg signals that the whole orchestration has completed.
type RunDoneMsg struct {
	Result *models.OrchestrationResult
}

// itemState tracks one work item's row in the monitor.
type itemState struct {
	name    string
	done    bool
	success bool
	detail  string
}

// App is the bubbletea model monitoring one orchestration run.
type App struct {
	taskName string
	strategy models.ResultStrategy

	spinner spinner.Model
	items   []itemState
	index   map[string]int

	width    int
	done     bool
	result   *models.OrchestrationResult
	quitting bool
}

// New creates a run monitor for the given task and work items.
func New(taskName string, strategy models.ResultStrategy, workItems []models.WorkItem) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))

	items := make([]itemState, len(workItems))
	index := make(map[string]int, len(workItems))
	for i, item := range workItems {
		items[i] = itemState{name: item.Name}
		index[item.Name] = i
	}

	return &App{
		taskName: taskName,
		strategy: strategy,
		spinner:  sp,
		items:    items,
		index:    index,
		width:    80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case OutcomeMsg:
		a.applyOutcome(msg)

	case RunDoneMsg:
		a.done = true
		a.result = msg.Result
		return a, tea.Quit
	}

	return a, nil
}

func (a *App) applyOutcome(msg OutcomeMsg) {
	i, ok := a.index[msg.Item.Name]
	if !ok {
		return
	}
	a.items[i].done = true
	a.items[i].success = msg.Outcome.Success
	if msg.Outcome.Success {
		a.items[i].detail = fmt.Sprintf("%v", msg.Outcome.Result)
	} else {
		a.items[i].detail = msg.Outcome.Error
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("hydra"))
	b.WriteString("  ")
	b.WriteString(subtitleStyle.Render(fmt.Sprintf("%s (%s)", a.taskName, a.strategy)))
	b.WriteString("\n\n")

	for _, item := range a.items {
		switch {
		case !item.done:
			b.WriteString(fmt.Sprintf("  %s %s\n", a.spinner.View(), pendingStyle.Render(item.name)))
		case item.success:
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", successStyle.Render("✓"), item.name, truncate(item.detail, a.width-len(item.name)-8)))
		default:
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", failureStyle.Render("✗"), item.name, truncate(item.detail, a.width-len(item.name)-8)))
		}
	}

	if a.done && a.result != nil {
		line := fmt.Sprintf("%d/%d succeeded in %s",
			a.result.SuccessCount(), a.result.TotalSessions, a.result.Duration().Round(time.Millisecond))
		if a.result.Success {
			b.WriteString(summaryStyle.Render(successStyle.Render(line)))
		} else {
			b.WriteString(summaryStyle.Render(failureStyle.Render(line)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(helpStyle.Render("press q to quit"))
		b.WriteString("\n")
	}

	return b.String()
}

// Done reports whether the run finished.
func (a *App) Done() bool {
	return a.done
}

// CompletedCount returns how many items have finished.
func (a *App) CompletedCount() int {
	n := 0
	for _, item := range a.items {
		if item.done {
			n++
		}
	}
	return n
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
