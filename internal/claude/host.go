package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/hydrakit/hydra/internal/orchestrator"
	"github.com/hydrakit/hydra/internal/state"
	"github.com/hydrakit/hydra/pkg/models"
)

// Messenger is the slice of Client the host needs: one Messages API call.
type Messenger interface {
	CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
	Model() anthropic.Model
}

// StopChecker reports whether an external stop signal has been raised.
type StopChecker interface {
	ShouldStop() bool
}

// PauseChecker reports whether an external pause signal is in effect.
type PauseChecker interface {
	ShouldPause() bool
}

// SessionHost creates and runs child sessions against the Anthropic API,
// persisting sessions and transcripts through the state store.
type SessionHost struct {
	messenger Messenger
	store     state.Store
	stop      StopChecker
	pause     PauseChecker
	pausePoll time.Duration
	maxTurns  int
}

// HostConfig configures a SessionHost.
type HostConfig struct {
	Messenger Messenger
	Store     state.Store
	// Stop is optional; when set, each turn checks it before calling the API.
	Stop StopChecker
	// Pause is optional; while it reports true, sessions hold before their
	// next API call instead of failing.
	Pause PauseChecker
	// MaxTurns caps API round-trips per session (0 = default of 50).
	MaxTurns int
}

// NewSessionHost creates a SessionHost.
func NewSessionHost(cfg HostConfig) *SessionHost {
	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 50
	}
	return &SessionHost{
		messenger: cfg.Messenger,
		store:     cfg.Store,
		stop:      cfg.Stop,
		pause:     cfg.Pause,
		pausePoll: 2 * time.Second,
		maxTurns:  maxTurns,
	}
}

var _ orchestrator.Host = (*SessionHost)(nil)

// StartChildSession creates and persists a new session under parent.
func (h *SessionHost) StartChildSession(ctx context.Context, parent *models.Session, personName string) (orchestrator.ChildSession, error) {
	session := &models.Session{
		ID:         uuid.New().String(),
		PersonName: personName,
		Status:     models.SessionActive,
		CreatedAt:  time.Now(),
	}
	if parent != nil {
		session.ParentID = parent.ID
	}

	if err := h.store.CreateSession(session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	return &childSession{host: h, session: session}, nil
}

// OpenSession resolves a session by ID from the store.
func (h *SessionHost) OpenSession(ctx context.Context, id string) (*models.Session, error) {
	return h.store.GetSession(id)
}

type childSession struct {
	host    *SessionHost
	session *models.Session
}

func (c *childSession) ID() string {
	return c.session.ID
}

// reportDoneInput is the payload of the completion tool call.
type reportDoneInput struct {
	Success bool   `json:"success"`
	Result  string `json:"result"`
}

// WaitForCompletion drives the session until it reports completion through
// the report_done tool. Each time the model ends a turn without reporting,
// the urging text is sent as the next user message. The turn budget bounds
// sessions that never report.
func (c *childSession) WaitForCompletion(ctx context.Context, prompt string, cfg *models.TaskConfig, urging string) (*models.SessionOutcome, error) {
	h := c.host
	start := time.Now()

	c.record("user", prompt)
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}

	for turn := 0; turn < h.maxTurns; turn++ {
		if h.stop != nil && h.stop.ShouldStop() {
			c.finish(models.SessionFailed)
			return nil, fmt.Errorf("stop signal received")
		}
		if err := c.awaitResume(ctx); err != nil {
			c.finish(models.SessionFailed)
			return nil, err
		}

		resp, err := h.messenger.CreateMessage(ctx, anthropic.MessageNewParams{
			Model:     h.messenger.Model(),
			MaxTokens: 8192,
			System: []anthropic.TextBlockParam{
				{Text: c.systemPrompt(cfg)},
			},
			Messages: messages,
			Tools:    completionTools(),
		})
		if err != nil {
			c.finish(models.SessionFailed)
			return nil, fmt.Errorf("API call failed: %w", err)
		}

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var report *reportDoneInput

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				c.record("assistant", variant.Text)
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				if variant.Name == "report_done" {
					var input reportDoneInput
					if err := json.Unmarshal(variant.Input, &input); err != nil {
						c.finish(models.SessionFailed)
						return nil, fmt.Errorf("parse report_done input: %w", err)
					}
					report = &input
				}
			}
		}

		if report != nil {
			status := models.SessionCompleted
			if !report.Success {
				status = models.SessionFailed
			}
			c.finish(status)

			outcome := &models.SessionOutcome{
				SessionID: c.session.ID,
				Success:   report.Success,
				Result:    report.Result,
				StartTime: start,
				EndTime:   time.Now(),
			}
			if !report.Success {
				outcome.Error = report.Result
			}
			return outcome, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if resp.StopReason == anthropic.StopReasonEndTurn {
			c.record("user", urging)
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(urging)))
		}
	}

	c.finish(models.SessionFailed)
	return nil, fmt.Errorf("session did not report completion within %d turns", h.maxTurns)
}

// awaitResume blocks while a pause signal is in effect, still honoring stop
// signals and context cancellation. A paused session makes no API calls.
func (c *childSession) awaitResume(ctx context.Context) error {
	h := c.host
	if h.pause == nil {
		return nil
	}
	for h.pause.ShouldPause() {
		if h.stop != nil && h.stop.ShouldStop() {
			return fmt.Errorf("stop signal received")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(h.pausePoll):
		}
	}
	return nil
}

// systemPrompt frames the session's persona and task.
func (c *childSession) systemPrompt(cfg *models.TaskConfig) string {
	s := fmt.Sprintf("You are %s.", c.session.PersonName)
	if cfg != nil && cfg.Description != "" {
		s += " " + cfg.Description
	}
	s += " When the task is finished, call the report_done tool with the outcome."
	return s
}

// record appends a transcript message; persistence failures are tolerated
// so a flaky disk never fails a running session.
func (c *childSession) record(role, content string) {
	_ = c.host.store.AppendMessage(&models.Message{
		ID:        uuid.New().String(),
		SessionID: c.session.ID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// finish stamps the session's terminal status.
func (c *childSession) finish(status models.SessionStatus) {
	now := time.Now()
	c.session.Status = status
	c.session.CompletedAt = &now
	_ = c.host.store.UpdateSession(c.session)
}

// completionTools returns the tool schema sessions use to report completion.
func completionTools() []anthropic.ToolUnionParam {
	return []anthropic.ToolUnionParam{
		{
			OfTool: &anthropic.ToolParam{
				Name:        "report_done",
				Description: anthropic.String("Report that the task is finished, with the final result."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"success": map[string]interface{}{
							"type":        "boolean",
							"description": "Whether the task completed successfully",
						},
						"result": map[string]interface{}{
							"type":        "string",
							"description": "The final result, or the failure reason",
						},
					},
					Required: []string{"success", "result"},
				},
			},
		},
	}
}
