package source

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/glowmap"
)

// ErrClosed is returned when operations are called on a closed Watcher.
var ErrClosed = errors.New("source: watcher is closed")

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 200 * time.Millisecond

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets the debounce window. Values <= 0 keep the default.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithErrorHandler sets the handler for watch and decode errors.
func WithErrorHandler(fn func(error)) WatchOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// Watcher reloads a snapshot file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself, so
// editors and tools that replace the file by rename keep working.
type Watcher struct {
	path       string
	debounce   time.Duration
	onSnapshot func(*glowmap.Snapshot)
	onError    func(error)

	fs *fsnotify.Watcher

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	done   chan struct{}
}

// Watch starts watching path. onSnapshot receives every successfully
// decoded version of the file; it runs on the watcher's goroutine.
func Watch(path string, onSnapshot func(*glowmap.Snapshot), opts ...WatchOption) (*Watcher, error) {
	if _, err := FormatOf(path); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:       abs,
		debounce:   DefaultDebounce,
		onSnapshot: onSnapshot,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("source: creating watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("source: watching %s: %w", filepath.Dir(abs), err)
	}
	w.fs = fsw

	go w.run()
	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string { return w.path }

// Close stops the watcher. Pending reloads are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	w.trigger()
}

// trigger schedules a reload after the debounce window, restarting the
// window if one is pending.
func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return
	}

	s, err := Load(w.path)
	if err != nil {
		w.reportError(err)
		return
	}
	glowmap.Logger().Info("source: snapshot reloaded", "path", w.path, "cells", len(s.Cells))
	if w.onSnapshot != nil {
		w.onSnapshot(s)
	}
}

func (w *Watcher) reportError(err error) {
	if w.onError != nil {
		w.onError(err)
		return
	}
	glowmap.Logger().Warn("source: watch error", "path", w.path, "err", err)
}
