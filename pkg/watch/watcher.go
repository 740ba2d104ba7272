// Package watch re-runs work when scenario or config files change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	lgerrors "github.com/logflow/loggen/pkg/errors"
)

// DefaultDebounce collapses the burst of events editors emit on save.
const DefaultDebounce = 500 * time.Millisecond

// Watcher batches file changes and reports them once they settle.
//
// Changes to several watched files inside one debounce window are reported
// together, so saving a scenario and its config triggers a single run.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration

	mu    sync.RWMutex
	files map[string]stamp
	dirs  map[string]bool

	// OnChange receives the changed paths in sorted order. Calls never overlap.
	OnChange func(ctx context.Context, paths []string) error
	OnError  func(err error)
}

// stamp identifies one version of a file.
type stamp struct {
	mod  time.Time
	size int64
}

func stampOf(fi os.FileInfo) stamp {
	return stamp{mod: fi.ModTime(), size: fi.Size()}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before changes are reported.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a Watcher with nothing watched yet.
func NewWatcher(opts ...Option) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, lgerrors.Wrap(err, lgerrors.CodeUnknown, "failed to start file watcher")
	}

	w := &Watcher{
		fs:       fs,
		debounce: DefaultDebounce,
		files:    make(map[string]stamp),
		dirs:     make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds files. Each file must exist; its directory is watched so
// editors that save by renaming a temp file are still seen.
func (w *Watcher) Watch(paths ...string) error {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return lgerrors.Wrap(err, lgerrors.CodeFileNotFound, "bad watch path").WithContext("path", p)
		}
		fi, err := os.Stat(abs)
		if err != nil {
			return lgerrors.FileNotFound(abs)
		}

		w.mu.Lock()
		w.files[abs] = stampOf(fi)
		dir := filepath.Dir(abs)
		if !w.dirs[dir] {
			if err := w.fs.Add(dir); err != nil {
				w.mu.Unlock()
				return lgerrors.Wrap(err, lgerrors.CodeUnknown, "failed to watch directory").WithContext("dir", dir)
			}
			w.dirs[dir] = true
		}
		w.mu.Unlock()
	}
	return nil
}

// Files returns the watched paths, sorted.
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.files))
	for p := range w.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Run blocks until ctx is done or the watcher is closed. OnChange runs on
// the calling goroutine, so events that arrive during a run are batched
// into the next one.
func (w *Watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !w.watched(abs) {
				continue
			}
			pending[abs] = true
			timer.Reset(w.debounce)

		case <-timer.C:
			changed := w.settle(pending)
			pending = make(map[string]bool)
			if len(changed) == 0 || w.OnChange == nil {
				continue
			}
			if err := w.OnChange(ctx, changed); err != nil {
				w.report(err)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		}
	}
}

func (w *Watcher) watched(abs string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.files[abs]
	return ok
}

// settle returns the pending paths whose stamp moved. A file that was
// renamed away and not yet replaced is left for a later event.
func (w *Watcher) settle(pending map[string]bool) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var changed []string
	for p := range pending {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		s := stampOf(fi)
		if prev := w.files[p]; prev.mod.Equal(s.mod) && prev.size == s.size {
			continue
		}
		w.files[p] = s
		changed = append(changed, p)
	}
	sort.Strings(changed)
	return changed
}

func (w *Watcher) report(err error) {
	if w.OnError != nil {
		w.OnError(err)
	}
}

// Close releases the underlying watcher and ends Run.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
