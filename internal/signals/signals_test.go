package signals

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

func TestNewWatcher_CreatesSignalsDir(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	signalsDir := filepath.Join(root, ".hydra", "signals")
	if _, err := os.Stat(signalsDir); err != nil {
		t.Errorf("signals dir not created: %v", err)
	}
	if w.HydraDir() != filepath.Join(root, ".hydra") {
		t.Errorf("HydraDir() = %q", w.HydraDir())
	}
}

func TestShouldStop_Initially(t *testing.T) {
	w := newTestWatcher(t)
	if w.ShouldStop() {
		t.Error("ShouldStop() = true with no signal")
	}
	if w.ShouldPause() {
		t.Error("ShouldPause() = true with no signal")
	}
}

func TestSendKill(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendKill(); err != nil {
		t.Fatalf("SendKill failed: %v", err)
	}

	// ShouldStop stats the file directly, no need to wait for fsnotify.
	if !w.ShouldStop() {
		t.Error("ShouldStop() = false after SendKill")
	}
	if w.ShouldPause() {
		t.Error("ShouldPause() = true after SendKill")
	}
}

func TestSendPause(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}

	if !w.ShouldPause() {
		t.Error("ShouldPause() = false after SendPause")
	}
	if w.ShouldStop() {
		t.Error("ShouldStop() = true after SendPause")
	}
}

func TestClearPause_Resumes(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !w.ShouldPause() {
		t.Fatal("ShouldPause() = false after SendPause")
	}

	if err := w.ClearPause(); err != nil {
		t.Fatalf("ClearPause failed: %v", err)
	}
	if w.ShouldPause() {
		t.Error("ShouldPause() = true after ClearPause")
	}

	// Clearing again without a pause file is not an error.
	if err := w.ClearPause(); err != nil {
		t.Errorf("ClearPause on cleared state failed: %v", err)
	}
}

func TestPauseFileRemoval_Resumes(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	pausePath := filepath.Join(root, ".hydra", "signals", "pause")
	if err := os.WriteFile(pausePath, []byte("now"), 0644); err != nil {
		t.Fatalf("write pause file: %v", err)
	}
	if !w.ShouldPause() {
		t.Fatal("ShouldPause() = false with pause file present")
	}

	// Another process removes the file; the run resumes.
	if err := os.Remove(pausePath); err != nil {
		t.Fatalf("remove pause file: %v", err)
	}
	if w.ShouldPause() {
		t.Error("ShouldPause() = true after pause file removed")
	}
}

func TestClear(t *testing.T) {
	w := newTestWatcher(t)

	if err := w.SendKill(); err != nil {
		t.Fatalf("SendKill failed: %v", err)
	}
	if err := w.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !w.ShouldStop() || !w.ShouldPause() {
		t.Fatal("signals not raised")
	}

	w.Clear()

	if w.ShouldStop() {
		t.Error("ShouldStop() = true after Clear")
	}
	if w.ShouldPause() {
		t.Error("ShouldPause() = true after Clear")
	}
}

func TestExternalKillFile(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	// Another process writes the kill file directly.
	killPath := filepath.Join(root, ".hydra", "signals", "kill")
	if err := os.WriteFile(killPath, []byte("now"), 0644); err != nil {
		t.Fatalf("write kill file: %v", err)
	}

	if !w.ShouldStop() {
		t.Error("ShouldStop() = false after external kill file")
	}
}
