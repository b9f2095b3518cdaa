package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hydrakit/hydra/pkg/models"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(successes, total int) *models.OrchestrationResult {
	start := time.Now().Add(-time.Minute)
	result := &models.OrchestrationResult{
		Strategy:      models.StrategyWaitForAll,
		TotalSessions: total,
		Success:       successes == total,
		StartTime:     start,
		EndTime:       start.Add(30 * time.Second),
	}
	for i := 0; i < total; i++ {
		result.Results = append(result.Results, models.SessionOutcome{
			SessionID: "sess",
			Success:   i < successes,
			StartTime: start,
			EndTime:   start.Add(time.Second),
		})
	}
	if successes < total {
		result.ErrorMessage = models.CompletionSummary(successes, total)
	}
	return result
}

func TestRecordAndGet(t *testing.T) {
	store := setupStore(t)

	run, err := store.Record("summarize", sampleResult(3, 3))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if run.ID == "" {
		t.Fatal("run ID is empty")
	}

	got, err := store.Get(run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.TaskName != "summarize" {
		t.Errorf("TaskName = %q, want %q", got.TaskName, "summarize")
	}
	if got.TotalSessions != 3 || got.Successes != 3 || !got.Success {
		t.Errorf("run = %+v, want 3/3 success", got)
	}
}

func TestRecordNilResult(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Record("x", nil); err == nil {
		t.Error("expected error for nil result")
	}
}

func TestRecordFailedRun(t *testing.T) {
	store := setupStore(t)

	run, err := store.Record("fanout", sampleResult(1, 3))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	got, err := store.Get(run.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Success {
		t.Error("Success = true, want false")
	}
	if got.ErrorMessage != "1/3 sessions completed successfully" {
		t.Errorf("ErrorMessage = %q", got.ErrorMessage)
	}
}

func TestOutcomes(t *testing.T) {
	store := setupStore(t)

	run, err := store.Record("fanout", sampleResult(2, 3))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	outcomes, err := store.Outcomes(run.ID)
	if err != nil {
		t.Fatalf("Outcomes failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("outcomes = %d, want 3", len(outcomes))
	}
	successes := 0
	for _, o := range outcomes {
		if o.Success {
			successes++
		}
	}
	if successes != 2 {
		t.Errorf("successes = %d, want 2", successes)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := setupStore(t)

	first := sampleResult(1, 1)
	second := sampleResult(1, 1)
	second.StartTime = first.StartTime.Add(time.Minute)
	second.EndTime = second.StartTime.Add(time.Second)

	if _, err := store.Record("first", first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := store.Record("second", second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, err := store.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs))
	}
	if runs[0].TaskName != "second" {
		t.Errorf("first listed = %q, want %q", runs[0].TaskName, "second")
	}

	limited, err := store.List(1)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited runs = %d, want 1", len(limited))
	}
}

func TestDelete(t *testing.T) {
	store := setupStore(t)

	run, err := store.Record("gone", sampleResult(1, 1))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := store.Delete(run.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(run.ID); err == nil {
		t.Error("expected error deleting missing run")
	}
	if _, err := store.Get(run.ID); err == nil {
		t.Error("expected error getting deleted run")
	}
}
