package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hydrakit/hydra/internal/orchestrator"
	"github.com/hydrakit/hydra/internal/tui"
	"github.com/hydrakit/hydra/pkg/models"
)

// runWithTUI fans the task out behind an interactive run monitor. Outcomes
// stream into the monitor as they complete; the monitor quits on its own
// once the orchestration finishes.
func runWithTUI(ctx context.Context, host orchestrator.Host, personName string, refsources map[string]any, items []models.WorkItem, task *models.TaskConfig, taskName string) (result *models.OrchestrationResult, retErr error) {
	// Suppress log output while the TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	// Quitting the monitor early cancels the run
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app := tui.New(taskName, task.Parallel.ResultStrategy, items)
	program := tea.NewProgram(app)

	orch := orchestrator.New(host, orchestrator.WithOutcomeSink(func(item models.WorkItem, outcome models.SessionOutcome) {
		program.Send(tui.OutcomeMsg{Item: item, Outcome: outcome})
	}))

	type orchReturn struct {
		result *models.OrchestrationResult
		err    error
	}
	orchDone := make(chan orchReturn, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				orchDone <- orchReturn{err: fmt.Errorf("PANIC in orchestrator: %v", r)}
				program.Quit()
			}
		}()

		res, err := orch.Orchestrate(runCtx, nil, personName, refsources, items, task)
		if err != nil {
			program.Quit()
		} else {
			program.Send(tui.RunDoneMsg{Result: res})
		}
		orchDone <- orchReturn{result: res, err: err}
	}()

	if _, err := program.Run(); err != nil {
		cancel()
		<-orchDone
		return nil, fmt.Errorf("run monitor: %w", err)
	}

	cancel()
	r := <-orchDone
	return r.result, r.err
}
