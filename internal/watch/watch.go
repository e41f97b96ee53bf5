// Package watch re-runs a callback when migration definitions change.
package watch

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/svco/svmigrate/internal/debug"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory for changes to files with given extensions.
type Watcher struct {
	dir      string
	exts     map[string]bool
	callback func() error
	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopped  chan struct{}
	once     sync.Once
}

// NewWatcher creates a new directory watcher. With no extensions every file
// counts.
func NewWatcher(dir string, exts []string, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := watcher.Add(absPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[e] = true
	}
	return &Watcher{
		dir:      absPath,
		exts:     set,
		callback: callback,
		debounce: DefaultDebounce,
		watcher:  watcher,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// SetDebounce changes the debounce interval. Call it before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start runs the callback once, then again after every settled change.
// Callback errors after the first run are logged and do not stop the watch.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	go w.loop()
	return nil
}

func (w *Watcher) loop() {
	defer close(w.stopped)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				timer.Reset(w.debounce)
				debounceCh = timer.C
			}

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(); err != nil {
				debug.Warn("Watch callback failed", "dir", w.dir, "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			debug.Warn("Watch error", "dir", w.dir, "error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return len(w.exts) == 0 || w.exts[filepath.Ext(base)]
}

// Stop stops watching and waits for the loop to exit. It is safe to call
// more than once.
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	<-w.stopped
	return err
}
