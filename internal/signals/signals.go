// Package signals provides file-based run control via the .hydra directory.
// Writing a kill or pause file under .hydra/signals stops or pauses a run
// from outside the process.
package signals

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the .hydra/signals directory for kill and pause files.
type Watcher struct {
	hydraDir string

	mu          sync.RWMutex
	stopSignal  bool
	pauseSignal bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher creates a signal watcher rooted at the given project directory.
func NewWatcher(projectRoot string) (*Watcher, error) {
	hydraDir := filepath.Join(projectRoot, ".hydra")

	signalsDir := filepath.Join(hydraDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	w := &Watcher{
		hydraDir: hydraDir,
		done:     make(chan struct{}),
	}

	// A failed fsnotify setup degrades to stat-based polling in ShouldStop.
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return w, nil
	}
	w.watcher = fsw

	if err := fsw.Add(signalsDir); err != nil {
		fsw.Close()
		w.watcher = nil
		return w, nil
	}

	go w.watch()

	return w, nil
}

// watch monitors the signals directory for kill/pause files.
func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.mu.Lock()
			base := filepath.Base(event.Name)
			created := event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0
			if base == "kill" && created {
				w.stopSignal = true
			} else if base == "pause" {
				if created {
					w.pauseSignal = true
				} else if event.Op&fsnotify.Remove != 0 {
					w.pauseSignal = false
				}
			}
			w.mu.Unlock()
		case <-w.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop returns true if a kill signal has been received.
func (w *Watcher) ShouldStop() bool {
	// Also check the file directly in case the watcher missed it.
	killPath := filepath.Join(w.hydraDir, "signals", "kill")
	if _, err := os.Stat(killPath); err == nil {
		w.mu.Lock()
		w.stopSignal = true
		w.mu.Unlock()
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stopSignal
}

// ShouldPause returns true while a pause signal is in effect. Unlike kill,
// pause is not sticky: removing the pause file resumes the run.
func (w *Watcher) ShouldPause() bool {
	pausePath := filepath.Join(w.hydraDir, "signals", "pause")
	_, err := os.Stat(pausePath)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pauseSignal = err == nil
	return w.pauseSignal
}

// SendKill creates a kill signal file.
func (w *Watcher) SendKill() error {
	path := filepath.Join(w.hydraDir, "signals", "kill")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendPause creates a pause signal file.
func (w *Watcher) SendPause() error {
	path := filepath.Join(w.hydraDir, "signals", "pause")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearPause removes the pause signal file, resuming a paused run.
func (w *Watcher) ClearPause() error {
	w.mu.Lock()
	w.pauseSignal = false
	w.mu.Unlock()

	err := os.Remove(filepath.Join(w.hydraDir, "signals", "pause"))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear removes all signal files and resets signal state.
func (w *Watcher) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopSignal = false
	w.pauseSignal = false

	os.Remove(filepath.Join(w.hydraDir, "signals", "kill"))
	os.Remove(filepath.Join(w.hydraDir, "signals", "pause"))
}

// HydraDir returns the path to the .hydra directory.
func (w *Watcher) HydraDir() string {
	return w.hydraDir
}

// Close shuts down the watcher.
func (w *Watcher) Close() {
	close(w.done)
	if w.watcher != nil {
		w.watcher.Close()
	}
}
