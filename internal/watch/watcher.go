// Package watch monitors tracked Markdown documents and triggers structure
// rescans on change, with per-file debouncing and optional periodic rescans.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/mdstruct/internal/logfields"
	"git.home.luguber.info/inful/mdstruct/internal/metrics"
)

// Handler is invoked with the absolute path of a changed document once its
// debounce window has elapsed.
type Handler func(ctx context.Context, path string)

// Watcher monitors document files for changes and invokes a handler per
// changed file after debouncing rapid successive writes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  Handler
	recorder metrics.Recorder
	debounce time.Duration

	mu       sync.Mutex
	tracked  map[string]struct{} // absolute file paths
	dirs     map[string]struct{} // watched parent directories
	pending  map[string]*time.Timer
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher that fires handler for each tracked file
// change. Debounce below zero is treated as zero.
func NewWatcher(handler Handler, debounce time.Duration, recorder metrics.Recorder) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if debounce < 0 {
		debounce = 0
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		handler:  handler,
		recorder: recorder,
		debounce: debounce,
		tracked:  map[string]struct{}{},
		dirs:     map[string]struct{}{},
		pending:  map[string]*time.Timer{},
		stopChan: make(chan struct{}),
	}, nil
}

// Add registers a document file for watching. The parent directory is
// watched rather than the file itself, so editors that replace files on
// save keep triggering events.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(abs)
	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch directory %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
	}
	w.tracked[abs] = struct{}{}
	w.recorder.SetWatchedDocuments(len(w.tracked))
	return nil
}

// Tracked returns the number of documents currently watched.
func (w *Watcher) Tracked() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tracked)
}

// Start begins processing file system events until ctx is done or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) {
	slog.Info("Starting document watcher", slog.Int("documents", w.Tracked()))
	go w.eventLoop(ctx)
}

// Stop stops the watcher and cancels pending debounce timers.
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() { close(w.stopChan) })

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Document watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		if event.Op&fsnotify.Remove != 0 {
			slog.Warn("Watched document removed", logfields.Document(event.Name))
		}
		return
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.tracked[abs]; !ok {
		return
	}

	slog.Debug("Document change detected", logfields.Document(abs))

	// Restart the debounce window on every event for this file.
	if timer, ok := w.pending[abs]; ok {
		timer.Stop()
	}
	w.pending[abs] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, abs)
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		default:
		}
		w.handler(ctx, abs)
	})
}
