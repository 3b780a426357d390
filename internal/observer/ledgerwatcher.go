// Package observer watches a ledger file for changes so live views (web,
// TUI) can refresh without polling the file themselves.
package observer

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after the ledger file has changed
type ChangeCallback func(path string)

// LedgerWatcher monitors a single ledger file. The ledger is replaced by a
// rename on every update, so the watch is on the containing directory and
// filtered by file name.
type LedgerWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	callback ChangeCallback
	debounce time.Duration

	mu      sync.Mutex
	pending bool
	timer   *time.Timer
	cancel  context.CancelFunc
}

// NewLedgerWatcher creates a watcher for the ledger at path
func NewLedgerWatcher(path string, callback ChangeCallback) (*LedgerWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}
	return &LedgerWatcher{
		watcher:  watcher,
		path:     path,
		callback: callback,
		debounce: 250 * time.Millisecond, // Debounce rapid successive upserts
	}, nil
}

// Start begins dispatching callbacks until Stop is called or ctx ends
func (w *LedgerWatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	go w.loop(ctx)
}

// Stop ends the watch and releases the underlying watcher
func (w *LedgerWatcher) Stop() {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}

func (w *LedgerWatcher) loop(ctx context.Context) {
	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			// Watch errors are transient; keep going.
		}
	}
}

// schedule arms the debounce timer; repeated events within the window
// collapse into one callback.
func (w *LedgerWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending {
		w.timer.Reset(w.debounce)
		return
	}
	w.pending = true
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()
		w.callback(w.path)
	})
}
