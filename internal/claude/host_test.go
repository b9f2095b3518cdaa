package claude

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hydrakit/hydra/internal/state"
	"github.com/hydrakit/hydra/pkg/models"
)

// fakeMessenger replays canned API responses.
type fakeMessenger struct {
	responses []*anthropic.Message
	calls     int
}

func (f *fakeMessenger) CreateMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	i := f.calls
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	f.calls++
	return f.responses[i], nil
}

func (f *fakeMessenger) Model() anthropic.Model {
	return "claude-test"
}

// apiMessage builds a Message the way the SDK does, from wire JSON.
func apiMessage(t *testing.T, raw string) *anthropic.Message {
	t.Helper()
	var m anthropic.Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return &m
}

func doneMessage(t *testing.T, success bool, result string) *anthropic.Message {
	t.Helper()
	input, _ := json.Marshal(map[string]any{"success": success, "result": result})
	return apiMessage(t, `{
		"id": "msg_done",
		"type": "message",
		"role": "assistant",
		"stop_reason": "tool_use",
		"content": [{"type": "tool_use", "id": "t1", "name": "report_done", "input": `+string(input)+`}],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)
}

func textMessage(t *testing.T, text string) *anthropic.Message {
	t.Helper()
	quoted, _ := json.Marshal(text)
	return apiMessage(t, `{
		"id": "msg_text",
		"type": "message",
		"role": "assistant",
		"stop_reason": "end_turn",
		"content": [{"type": "text", "text": `+string(quoted)+`}],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)
}

func testStore(t *testing.T) *state.DB {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *models.TaskConfig {
	return &models.TaskConfig{
		Name:           "fanout",
		Description:    "Summarize one document.",
		PromptTemplate: "summarize {{ .Item.Name }}",
		UrgingTemplate: "call report_done when finished",
	}
}

func TestStartChildSession(t *testing.T) {
	store := testStore(t)
	host := NewSessionHost(HostConfig{Messenger: &fakeMessenger{}, Store: store})

	parent := &models.Session{ID: "root"}
	child, err := host.StartChildSession(context.Background(), parent, "researcher")
	if err != nil {
		t.Fatalf("StartChildSession failed: %v", err)
	}
	if child.ID() == "" {
		t.Fatal("child ID is empty")
	}

	persisted, err := host.OpenSession(context.Background(), child.ID())
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	if persisted == nil {
		t.Fatal("session not persisted")
	}
	if persisted.ParentID != "root" {
		t.Errorf("ParentID = %q, want %q", persisted.ParentID, "root")
	}
	if persisted.PersonName != "researcher" {
		t.Errorf("PersonName = %q, want %q", persisted.PersonName, "researcher")
	}
	if persisted.Status != models.SessionActive {
		t.Errorf("Status = %q, want active", persisted.Status)
	}
}

func TestStartChildSession_NilParent(t *testing.T) {
	store := testStore(t)
	host := NewSessionHost(HostConfig{Messenger: &fakeMessenger{}, Store: store})

	child, err := host.StartChildSession(context.Background(), nil, "worker")
	if err != nil {
		t.Fatalf("StartChildSession failed: %v", err)
	}

	persisted, err := host.OpenSession(context.Background(), child.ID())
	if err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	if !persisted.Root() {
		t.Error("Root() = false, want true for nil parent")
	}
}

func TestWaitForCompletion_ReportsDone(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{doneMessage(t, true, "42")}}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store})

	child, err := host.StartChildSession(context.Background(), nil, "worker")
	if err != nil {
		t.Fatalf("StartChildSession failed: %v", err)
	}

	outcome, err := child.WaitForCompletion(context.Background(), "do the task", testConfig(), "keep going")
	if err != nil {
		t.Fatalf("WaitForCompletion failed: %v", err)
	}
	if !outcome.Success {
		t.Errorf("Success = false, Error = %q", outcome.Error)
	}
	if outcome.Result != "42" {
		t.Errorf("Result = %v, want %q", outcome.Result, "42")
	}
	if outcome.SessionID != child.ID() {
		t.Errorf("SessionID = %q, want %q", outcome.SessionID, child.ID())
	}

	persisted, _ := host.OpenSession(context.Background(), child.ID())
	if persisted.Status != models.SessionCompleted {
		t.Errorf("Status = %q, want completed", persisted.Status)
	}
	if persisted.CompletedAt == nil {
		t.Error("CompletedAt = nil, want set")
	}
}

func TestWaitForCompletion_ReportedFailure(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{doneMessage(t, false, "no data found")}}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store})

	child, _ := host.StartChildSession(context.Background(), nil, "worker")
	outcome, err := child.WaitForCompletion(context.Background(), "do the task", testConfig(), "keep going")
	if err != nil {
		t.Fatalf("WaitForCompletion failed: %v", err)
	}
	if outcome.Success {
		t.Error("Success = true, want false")
	}
	if outcome.Error != "no data found" {
		t.Errorf("Error = %q", outcome.Error)
	}

	persisted, _ := host.OpenSession(context.Background(), child.ID())
	if persisted.Status != models.SessionFailed {
		t.Errorf("Status = %q, want failed", persisted.Status)
	}
}

func TestWaitForCompletion_UrgesUntilDone(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{
		textMessage(t, "still working"),
		textMessage(t, "almost there"),
		doneMessage(t, true, "finished"),
	}}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store})

	child, _ := host.StartChildSession(context.Background(), nil, "worker")
	outcome, err := child.WaitForCompletion(context.Background(), "do the task", testConfig(), "call report_done when finished")
	if err != nil {
		t.Fatalf("WaitForCompletion failed: %v", err)
	}
	if !outcome.Success {
		t.Errorf("Success = false, Error = %q", outcome.Error)
	}
	if messenger.calls != 3 {
		t.Errorf("API calls = %d, want 3", messenger.calls)
	}

	msgs, err := store.ListMessages(child.ID())
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	urgings := 0
	for _, m := range msgs {
		if m.Role == "user" && strings.Contains(m.Content, "report_done") {
			urgings++
		}
	}
	if urgings != 2 {
		t.Errorf("urging messages = %d, want 2", urgings)
	}
}

func TestWaitForCompletion_TurnBudget(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{textMessage(t, "rambling")}}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store, MaxTurns: 3})

	child, _ := host.StartChildSession(context.Background(), nil, "worker")
	_, err := child.WaitForCompletion(context.Background(), "do the task", testConfig(), "keep going")
	if err == nil {
		t.Fatal("expected turn budget error")
	}
	if !strings.Contains(err.Error(), "within 3 turns") {
		t.Errorf("error = %v", err)
	}
	if messenger.calls != 3 {
		t.Errorf("API calls = %d, want 3", messenger.calls)
	}

	persisted, _ := host.OpenSession(context.Background(), child.ID())
	if persisted.Status != models.SessionFailed {
		t.Errorf("Status = %q, want failed", persisted.Status)
	}
}

type alwaysStop struct{}

func (alwaysStop) ShouldStop() bool { return true }

func TestWaitForCompletion_StopSignal(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{doneMessage(t, true, "x")}}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store, Stop: alwaysStop{}})

	child, _ := host.StartChildSession(context.Background(), nil, "worker")
	_, err := child.WaitForCompletion(context.Background(), "do the task", testConfig(), "keep going")
	if err == nil || !strings.Contains(err.Error(), "stop signal") {
		t.Fatalf("error = %v, want stop signal error", err)
	}
	if messenger.calls != 0 {
		t.Errorf("API calls = %d, want 0", messenger.calls)
	}
}

// pauseNTimes reports paused for the first n checks, then resumes.
type pauseNTimes struct{ n int }

func (p *pauseNTimes) ShouldPause() bool {
	if p.n > 0 {
		p.n--
		return true
	}
	return false
}

type alwaysPaused struct{}

func (alwaysPaused) ShouldPause() bool { return true }

func TestWaitForCompletion_PauseHoldsAPICalls(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{doneMessage(t, true, "x")}}
	pause := &pauseNTimes{n: 3}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store, Pause: pause})
	host.pausePoll = time.Millisecond

	child, _ := host.StartChildSession(context.Background(), nil, "worker")
	outcome, err := child.WaitForCompletion(context.Background(), "do the task", testConfig(), "keep going")
	if err != nil {
		t.Fatalf("WaitForCompletion failed: %v", err)
	}
	if !outcome.Success {
		t.Errorf("Success = false, Error = %q", outcome.Error)
	}
	if pause.n != 0 {
		t.Errorf("remaining pause checks = %d, want 0", pause.n)
	}
	if messenger.calls != 1 {
		t.Errorf("API calls = %d, want 1", messenger.calls)
	}
}

func TestWaitForCompletion_CancelledWhilePaused(t *testing.T) {
	store := testStore(t)
	messenger := &fakeMessenger{responses: []*anthropic.Message{doneMessage(t, true, "x")}}
	host := NewSessionHost(HostConfig{Messenger: messenger, Store: store, Pause: alwaysPaused{}})
	host.pausePoll = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	child, _ := host.StartChildSession(ctx, nil, "worker")

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := child.WaitForCompletion(ctx, "do the task", testConfig(), "keep going")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if messenger.calls != 0 {
		t.Errorf("API calls = %d, want 0", messenger.calls)
	}

	persisted, _ := host.OpenSession(context.Background(), child.ID())
	if persisted.Status != models.SessionFailed {
		t.Errorf("Status = %q, want failed", persisted.Status)
	}
}

func TestBedrockProfile(t *testing.T) {
	got := bedrockProfile(anthropic.ModelClaudeSonnet4_20250514)
	want := anthropic.Model("us.anthropic.claude-sonnet-4-20250514-v1:0")
	if got != want {
		t.Errorf("bedrockProfile() = %q, want %q", got, want)
	}

	// Unknown models pass through unchanged.
	custom := anthropic.Model("my-custom-model")
	if bedrockProfile(custom) != custom {
		t.Error("custom model was translated")
	}
}

func TestTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add(100, 50)
	tracker.Add(200, 25)

	in, out := tracker.Total()
	if in != 300 || out != 75 {
		t.Errorf("Total() = (%d, %d), want (300, 75)", in, out)
	}
	if tracker.Calls() != 2 {
		t.Errorf("Calls() = %d, want 2", tracker.Calls())
	}

	tracker.Reset()
	in, out = tracker.Total()
	if in != 0 || out != 0 || tracker.Calls() != 0 {
		t.Error("Reset did not clear tracker")
	}
}
