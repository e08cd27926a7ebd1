package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"targetsync/internal/catalog"
	"targetsync/pkg/logging"
)

const watcherSubsystem = "FilesystemWatcher"

// EventSourceName identifies events produced by the Watcher.
const EventSourceName = "filesystem"

// DefaultDebounce is how long the watcher waits for further writes.
const DefaultDebounce = 500 * time.Millisecond

// Watcher is an EventSource that emits one event per target whose entry in
// the targets file was added, changed or removed.
type Watcher struct {
	mu sync.Mutex

	path     string
	debounce time.Duration

	watcher *fsnotify.Watcher
	timer   *time.Timer
	known   map[string]catalog.TargetDescriptor
	stopCh  chan struct{}
	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher for the targets file at path.
func NewWatcher(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
	}
}

func (w *Watcher) Name() string { return EventSourceName }

// Start watches the directory containing the targets file. Editors commonly
// replace files instead of writing them, so the directory is watched rather
// than the file.
func (w *Watcher) Start(ctx context.Context, out chan<- catalog.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create filesystem watcher: %w", err)
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("create targets directory: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.known = w.readKnown()
	w.watcher = fsw
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true

	go w.processEvents(ctx, fsw, w.stopCh, w.done, out)

	logging.Info(watcherSubsystem, "Started watching %s for target changes", w.path)
	return nil
}

func (w *Watcher) readKnown() map[string]catalog.TargetDescriptor {
	known := make(map[string]catalog.TargetDescriptor)
	targets, err := ReadFile(w.path)
	if err != nil {
		logging.Debug(watcherSubsystem, "Targets file not readable yet: %v", err)
		return known
	}
	for _, t := range targets {
		known[t.RelationshipID] = t
	}
	return known
}

func (w *Watcher) processEvents(ctx context.Context, fsw *fsnotify.Watcher, stopCh, done chan struct{}, out chan<- catalog.Event) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return

		case <-stopCh:
			w.cancelPending()
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx, out)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logging.Error(watcherSubsystem, err, "Filesystem watcher error")
		}
	}
}

// schedule debounces bursts of writes into a single diff.
func (w *Watcher) schedule(ctx context.Context, out chan<- catalog.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.emitChanges(ctx, out)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) emitChanges(ctx context.Context, out chan<- catalog.Event) {
	targets, err := ReadFile(w.path)
	if err != nil {
		// A half-written or removed file is picked up by the next write.
		logging.Warn(watcherSubsystem, "Skipping change notification: %v", err)
		return
	}

	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	events := diff(w.known, targets)
	w.known = make(map[string]catalog.TargetDescriptor, len(targets))
	for _, t := range targets {
		w.known[t.RelationshipID] = t
	}
	w.mu.Unlock()

	for _, ev := range events {
		select {
		case out <- ev:
			logging.Debug(watcherSubsystem, "Emitted %s event for %s", ev.Kind, ev.RelationshipID)
		case <-ctx.Done():
			return
		}
	}
}

func diff(known map[string]catalog.TargetDescriptor, current []catalog.TargetDescriptor) []catalog.Event {
	var events []catalog.Event
	seen := make(map[string]struct{}, len(current))

	for _, t := range current {
		seen[t.RelationshipID] = struct{}{}
		old, ok := known[t.RelationshipID]
		switch {
		case !ok:
			events = append(events, newEvent(catalog.EventCreated, t))
		case old.VersionStamp != t.VersionStamp:
			events = append(events, newEvent(catalog.EventUpdated, t))
		}
	}
	for id, t := range known {
		if _, ok := seen[id]; !ok {
			events = append(events, newEvent(catalog.EventDeleted, t))
		}
	}
	return events
}

func newEvent(kind catalog.EventKind, t catalog.TargetDescriptor) catalog.Event {
	ev := catalog.NewEvent(kind, EventSourceName, t.TargetElementID)
	ev.RelationshipID = t.RelationshipID
	return ev
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	fsw := w.watcher
	done := w.done
	w.watcher = nil
	w.mu.Unlock()

	<-done

	if err := fsw.Close(); err != nil {
		logging.Error(watcherSubsystem, err, "Error closing filesystem watcher")
		return err
	}
	logging.Info(watcherSubsystem, "Stopped watching %s", w.path)
	return nil
}
